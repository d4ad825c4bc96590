// Package main implements the distributed-mode grading worker: a
// process that claims tasks from the Postgres-backed queue, grades
// them, and publishes progress over NOTIFY for the API servers to
// relay.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/examstack/grading-api/internal/config"
	"github.com/examstack/grading-api/internal/dispatch"
	"github.com/examstack/grading-api/internal/events"
	"github.com/examstack/grading-api/internal/grading"
	"github.com/examstack/grading-api/internal/platform/logger"
	"github.com/examstack/grading-api/internal/platform/postgres"
	"github.com/examstack/grading-api/internal/stats"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logg := logger.Setup(cfg.Server.LogLevel)

	workerID := workerIdentity()
	logg.Info("worker configuration loaded",
		"worker_id", workerID,
		"log_level", cfg.Server.LogLevel,
		"grading_strategy", cfg.Grading.Strategy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := setupDatabase(cfg, logg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }()

	results := postgres.NewPostgresResultStore(db, logg)
	statsStore := postgres.NewPostgresStatsStore(db, logg)
	aggregator := stats.NewAggregator(db, statsStore, results, logg)
	queue := postgres.NewPostgresQueueStore(db, logg)

	engine := grading.NewEngine(grading.NewMatcher(comparerFor(cfg.Grading.Strategy), logg))
	publisher := events.NewPGPublisher(db, logg)
	executor := dispatch.NewExecutor(engine, results, aggregator, publisher, logg)

	workerCfg := workerConfig(workerID, cfg)
	worker := dispatch.NewWorker(queue, executor, workerCfg, logg)

	if err := worker.Run(ctx); err != nil {
		log.Fatalf("worker error: %v", err)
	}

	logg.Info("worker shutdown completed")
}

// workerIdentity names this process in queue heartbeats.
func workerIdentity() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// workerConfig maps the shared queue configuration onto the worker
// loop.
func workerConfig(id string, cfg *config.Config) dispatch.WorkerConfig {
	workerCfg := dispatch.DefaultWorkerConfig(id)
	if cfg.Queue.StuckTaskAgeMinutes > 0 {
		workerCfg.StuckTaskAge = time.Duration(cfg.Queue.StuckTaskAgeMinutes) * time.Minute
	}
	return workerCfg
}

// comparerFor selects the answer comparison strategy.
func comparerFor(strategy string) grading.Comparer {
	if strategy == "exact" {
		return grading.ExactComparer{}
	}
	return grading.FuzzyComparer{}
}

// setupDatabase establishes a connection to the database and configures
// the connection pool.
func setupDatabase(cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established")
	return db, nil
}
