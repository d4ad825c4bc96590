package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/examstack/grading-api/internal/domain"
	"github.com/examstack/grading-api/internal/store"
)

// workerLivenessWindow is how recently a worker must have heartbeat to
// count as alive in QueueStats.
const workerLivenessWindow = time.Minute

// DistributedDispatcher hands jobs to a shared queue backend consumed
// by separate worker processes. It holds no authoritative task state:
// Status and QueueStats are re-derived from the backend on every call,
// because the querying process may not be the one that submitted.
type DistributedDispatcher struct {
	queue   QueueStore
	results store.ResultStore
	logger  *slog.Logger
}

// NewDistributedDispatcher creates a dispatcher over the given backend.
func NewDistributedDispatcher(queue QueueStore, results store.ResultStore, logger *slog.Logger) *DistributedDispatcher {
	return &DistributedDispatcher{
		queue:   queue,
		results: results,
		logger:  logger.With("component", "distributed_dispatcher"),
	}
}

// Submit implements Dispatcher. The backend's task identifier is the
// caller-visible handle. A job that cannot reach the backend fails
// immediately with ErrBackendUnavailable; it is never queued locally.
func (d *DistributedDispatcher) Submit(ctx context.Context, job *domain.GradingJob) (string, error) {
	if err := job.Validate(); err != nil {
		return "", fmt.Errorf("invalid grading job: %w", err)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to serialize grading job: %w", err)
	}

	task := &QueuedTask{
		ID:          uuid.New(),
		UserID:      job.UserID,
		State:       TaskWaiting,
		Payload:     payload,
		SubmittedAt: time.Now().UTC(),
	}

	if err := d.queue.Enqueue(ctx, task); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	d.logger.Debug("task handed to backend", "task_id", task.ID, "user_id", job.UserID)
	return task.ID.String(), nil
}

// Status implements Dispatcher, querying the backend live.
func (d *DistributedDispatcher) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	id, err := uuid.Parse(taskID)
	if err != nil {
		return nil, store.ErrTaskNotFound
	}

	task, err := d.queue.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	status := &TaskStatus{
		State: task.State,
		Error: task.ErrorMessage,
	}

	if task.State == TaskDone && task.ResultID != nil {
		result, err := d.results.Get(ctx, *task.ResultID)
		if err != nil {
			// The task finished but its result row is gone (deleted by
			// the user already); report done without the payload.
			d.logger.Warn("done task has no readable result",
				"task_id", taskID, "error", err)
		} else {
			status.Result = result
		}
	}

	return status, nil
}

// QueueStats implements Dispatcher. Partial backend unavailability
// degrades to zeros rather than an error.
func (d *DistributedDispatcher) QueueStats(ctx context.Context) QueueStats {
	stats := QueueStats{Mode: "distributed"}

	counts, err := d.queue.CountByState(ctx)
	if err != nil {
		d.logger.Warn("failed to count queued tasks", "error", err)
	} else {
		stats.Active = counts[TaskProcessing]
		stats.Waiting = counts[TaskWaiting]
	}

	workers, err := d.queue.CountWorkers(ctx, workerLivenessWindow)
	if err != nil {
		d.logger.Warn("failed to count live workers", "error", err)
	} else {
		stats.Workers = workers
	}

	return stats
}
