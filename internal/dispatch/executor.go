package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/examstack/grading-api/internal/domain"
	"github.com/examstack/grading-api/internal/events"
	"github.com/examstack/grading-api/internal/grading"
	"github.com/examstack/grading-api/internal/store"
)

// progressStride controls how often intermediate progress events are
// emitted: every fifth question plus the final one, with the percentage
// scaled from 10 to 90 across the exam.
const progressStride = 5

// StatsApplier folds a scored exam into the per-user statistics.
// Implemented by the stats.Aggregator; defined here so the dispatcher
// depends only on what it calls.
type StatsApplier interface {
	Apply(
		ctx context.Context,
		userID int64,
		category string,
		totalScore, maxScore int,
		details []domain.ScoredAnswer,
	) error
}

// Executor runs one grading task to completion: grade, persist, apply
// statistics, publish progress. Both backends share it, so the
// persist-then-aggregate ordering holds in either mode: a failed
// persist can never produce orphaned statistics.
type Executor struct {
	engine    *grading.Engine
	results   store.ResultStore
	stats     StatsApplier
	publisher events.Publisher
	logger    *slog.Logger
}

// NewExecutor wires an executor. All dependencies are required.
func NewExecutor(
	engine *grading.Engine,
	results store.ResultStore,
	stats StatsApplier,
	publisher events.Publisher,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		engine:    engine,
		results:   results,
		stats:     stats,
		publisher: publisher,
		logger:    logger.With("component", "executor"),
	}
}

// Execute grades the job under the given task identifier, which doubles
// as the persisted result's identifier so the waiting client can be
// redirected straight to the result view.
//
// On failure the task's error event has already been published when
// Execute returns; the caller still owns the terminal state transition.
func (e *Executor) Execute(
	ctx context.Context,
	taskID uuid.UUID,
	job *domain.GradingJob,
) (*domain.ExamResult, error) {
	channel := taskID.String()
	log := e.logger.With("task_id", channel, "user_id", job.UserID)

	e.publisher.Publish(ctx, channel, events.ProgressEvent{
		Status:  events.StatusProcessing,
		Percent: 10,
	})

	outcome := e.engine.Grade(job, func(graded, total int) {
		if (graded-1)%progressStride != 0 && graded != total {
			return
		}
		e.publisher.Publish(ctx, channel, events.ProgressEvent{
			Status:  events.StatusProcessing,
			Percent: 10 + int(float64(graded)/float64(total)*80),
		})
	})

	result, err := domain.NewExamResult(
		taskID,
		job.UserID,
		job.Category,
		outcome.TotalScore,
		outcome.MaxScore,
		outcome.Details,
	)
	if err != nil {
		return nil, e.fail(ctx, log, channel, fmt.Errorf("failed to build exam result: %w", err))
	}

	if err := e.results.Create(ctx, result); err != nil {
		if errors.Is(err, store.ErrResultExists) {
			return e.finishExisting(ctx, log, taskID, channel)
		}
		return nil, e.fail(ctx, log, channel, fmt.Errorf("failed to persist exam result: %w", err))
	}

	if err := e.stats.Apply(ctx, job.UserID, job.Category, outcome.TotalScore, outcome.MaxScore, outcome.Details); err != nil {
		return nil, e.fail(ctx, log, channel, fmt.Errorf("failed to apply statistics: %w", err))
	}

	e.publisher.Publish(ctx, channel, events.ProgressEvent{
		Status:    events.StatusDone,
		Percent:   100,
		ResultURL: "/history/view/" + channel,
	})

	log.Info("grading task completed",
		"total_score", result.TotalScore,
		"max_score", result.MaxScore)
	return result, nil
}

// finishExisting completes a re-executed task whose result was already
// persisted by an earlier run that died before recording the terminal
// state. The stored result stands and statistics are not applied again.
func (e *Executor) finishExisting(
	ctx context.Context,
	log *slog.Logger,
	taskID uuid.UUID,
	channel string,
) (*domain.ExamResult, error) {
	existing, err := e.results.Get(ctx, taskID)
	if err != nil {
		return nil, e.fail(ctx, log, channel, fmt.Errorf("failed to load existing exam result: %w", err))
	}

	e.publisher.Publish(ctx, channel, events.ProgressEvent{
		Status:    events.StatusDone,
		Percent:   100,
		ResultURL: "/history/view/" + channel,
	})

	log.Info("grading task was already completed",
		"total_score", existing.TotalScore,
		"max_score", existing.MaxScore)
	return existing, nil
}

func (e *Executor) fail(ctx context.Context, log *slog.Logger, channel string, err error) error {
	log.Error("grading task failed", "error", err)
	e.publisher.Publish(ctx, channel, events.ProgressEvent{
		Status: events.StatusError,
		Error:  err.Error(),
	})
	return err
}
