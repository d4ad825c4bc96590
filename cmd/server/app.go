package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/examstack/grading-api/internal/config"
	"github.com/examstack/grading-api/internal/dispatch"
	"github.com/examstack/grading-api/internal/domain"
	"github.com/examstack/grading-api/internal/events"
	"github.com/examstack/grading-api/internal/grading"
	"github.com/examstack/grading-api/internal/platform/postgres"
	"github.com/examstack/grading-api/internal/platform/sqlite"
	"github.com/examstack/grading-api/internal/stats"
	"github.com/examstack/grading-api/internal/store"
)

// application bundles the wired dependencies of the server process.
type application struct {
	config *config.Config
	logger *slog.Logger

	db         *sql.DB
	results    store.ResultStore
	statsStore store.StatsStore
	aggregator *stats.Aggregator
	questions  store.QuestionRepository
	dispatcher dispatch.Dispatcher
	subscriber events.Subscriber

	cleanupFns []func()
}

// newApplication wires the full dependency graph for the configured
// queue mode. In local mode grading runs on an in-process worker pool;
// in distributed mode this process only enqueues and observes, with
// separate worker processes doing the grading.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.onCleanup(func() { _ = db.Close() })

	if err := runMigrations(db, logger); err != nil {
		app.cleanup()
		return nil, err
	}

	app.results = postgres.NewPostgresResultStore(db, logger)
	app.statsStore = postgres.NewPostgresStatsStore(db, logger)
	app.aggregator = stats.NewAggregator(db, app.statsStore, app.results, logger)

	app.questions, err = setupQuestionBank(cfg, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}
	if closer, ok := app.questions.(interface{ Close() error }); ok {
		app.onCleanup(func() { _ = closer.Close() })
	}

	engine := grading.NewEngine(grading.NewMatcher(comparerFor(cfg.Grading.Strategy), logger))
	broker := events.NewMemoryBroker(logger)
	app.subscriber = broker

	switch cfg.Queue.Mode {
	case "distributed":
		queueStore := postgres.NewPostgresQueueStore(db, logger)
		app.dispatcher = dispatch.NewDistributedDispatcher(queueStore, app.results, logger)

		// Workers publish progress through NOTIFY; the listener feeds it
		// into the broker that local subscribers hang off.
		listener := events.NewPGListener(cfg.Database.URL, broker, logger)
		listenerCtx, stopListener := context.WithCancel(ctx)
		go listener.Run(listenerCtx)
		app.onCleanup(stopListener)

	default:
		executor := dispatch.NewExecutor(engine, app.results, app.aggregator, broker, logger)
		local := dispatch.NewLocalDispatcher(executor, localConfig(cfg), logger)
		app.dispatcher = local
		app.onCleanup(local.Stop)
	}

	return app, nil
}

func (app *application) onCleanup(fn func()) {
	app.cleanupFns = append(app.cleanupFns, fn)
}

// cleanup tears resources down in reverse wiring order.
func (app *application) cleanup() {
	for i := len(app.cleanupFns) - 1; i >= 0; i-- {
		app.cleanupFns[i]()
	}
	app.cleanupFns = nil
}

// comparerFor selects the answer comparison strategy.
func comparerFor(strategy string) grading.Comparer {
	if strategy == "exact" {
		return grading.ExactComparer{}
	}
	return grading.FuzzyComparer{}
}

// localConfig maps the queue configuration onto the local dispatcher.
func localConfig(cfg *config.Config) dispatch.LocalConfig {
	local := dispatch.DefaultLocalConfig()
	if cfg.Queue.WorkerCount > 0 {
		local.WorkerCount = cfg.Queue.WorkerCount
	}
	if cfg.Queue.QueueSize > 0 {
		local.QueueSize = cfg.Queue.QueueSize
	}
	if cfg.Queue.RegistryLimit > 0 {
		local.RegistryLimit = cfg.Queue.RegistryLimit
	}
	if cfg.Queue.StuckTaskAgeMinutes > 0 {
		local.StuckTaskAge = time.Duration(cfg.Queue.StuckTaskAgeMinutes) * time.Minute
	}
	return local
}

// setupQuestionBank opens the sqlite question bank when one is
// configured; otherwise the server runs with an empty bank and every
// submission grades against an empty snapshot.
func setupQuestionBank(cfg *config.Config, logger *slog.Logger) (store.QuestionRepository, error) {
	if cfg.Database.QuestionBankPath == "" {
		logger.Warn("no question bank configured, serving an empty bank")
		return emptyBank{}, nil
	}

	repo, err := sqlite.Open(cfg.Database.QuestionBankPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open question bank: %w", err)
	}
	return repo, nil
}

// emptyBank is the question repository used when no bank is configured.
type emptyBank struct{}

func (emptyBank) LoadQuestions(context.Context) ([]domain.ExamQuestion, error) { return nil, nil }
func (emptyBank) Categories(context.Context) ([]string, error)                { return nil, nil }
