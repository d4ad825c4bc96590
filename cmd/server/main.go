// Package main implements the entry point for the grading API server:
// exam submission, task status and progress, exam history and per-user
// statistics over the asynchronous grading pipeline.
package main

import (
	"context"
	"log"

	"github.com/examstack/grading-api/internal/config"
	"github.com/examstack/grading-api/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logg := logger.Setup(cfg.Server.LogLevel)
	logg.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"queue_mode", cfg.Queue.Mode,
		"grading_strategy", cfg.Grading.Strategy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApplication(ctx, cfg, logg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
