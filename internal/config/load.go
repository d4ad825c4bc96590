package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables (prefix GRADING_)
// and an optional config.yaml in the working directory. Environment
// variables take precedence over file values. Returns a populated,
// validated Config or an error.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults mirror the legacy deployment: two workers over a bounded
	// queue, registry capped at 2000 entries.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	// Registering empty defaults makes env-only keys visible to Unmarshal.
	v.SetDefault("database.url", "")
	v.SetDefault("database.question_bank_path", "")
	v.SetDefault("queue.mode", "local")
	v.SetDefault("queue.worker_count", 2)
	v.SetDefault("queue.queue_size", 100)
	v.SetDefault("queue.registry_limit", 2000)
	v.SetDefault("queue.stuck_task_age_minutes", 30)
	v.SetDefault("grading.strategy", "fuzzy")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GRADING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
