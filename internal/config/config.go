package config

// Config holds all application configuration, organized into logical
// groups.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
	Grading  GradingConfig  `mapstructure:"grading"`
}

// ServerConfig contains server-related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	// URL is the Postgres connection string backing results, statistics
	// and the distributed grading queue.
	URL string `mapstructure:"url" validate:"required"`

	// QuestionBankPath is the sqlite file holding the question bank
	// maintained by the (external) management screens. Optional; the
	// server runs without a question repository when empty.
	QuestionBankPath string `mapstructure:"question_bank_path"`
}

// QueueConfig selects and tunes the task execution backend. Mode is
// chosen once at startup; local and distributed scheduling are never
// mixed at runtime.
type QueueConfig struct {
	// Mode is "local" (in-process worker pool) or "distributed"
	// (Postgres-backed queue consumed by separate worker processes).
	Mode string `mapstructure:"mode" validate:"required,oneof=local distributed"`

	// WorkerCount is the number of concurrent grading workers.
	WorkerCount int `mapstructure:"worker_count" validate:"gte=1"`

	// QueueSize bounds the local-mode in-memory queue. Submissions
	// against a full queue are rejected, never silently dropped.
	QueueSize int `mapstructure:"queue_size" validate:"gte=1"`

	// RegistryLimit bounds the local-mode task registry; once exceeded
	// the oldest entries are evicted.
	RegistryLimit int `mapstructure:"registry_limit" validate:"gte=1"`

	// StuckTaskAge is how long a task may sit in processing before it is
	// surfaced as errored (local) or requeued (distributed).
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"gte=1"`
}

// GradingConfig tunes the answer matcher.
type GradingConfig struct {
	// Strategy selects the comparison strategy: "fuzzy" (default) or
	// "exact". The matcher degrades to exact per-question when the
	// fuzzy routine fails, regardless of this setting.
	Strategy string `mapstructure:"strategy" validate:"omitempty,oneof=fuzzy exact"`
}
