package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// QueuedTask is one row of the distributed grading queue. Payload is
// the JSON-serialized GradingJob, carried losslessly so a worker in
// another process can resolve question content on its own.
type QueuedTask struct {
	ID           uuid.UUID
	UserID       int64
	State        TaskState
	Payload      []byte
	ResultID     *uuid.UUID
	ErrorMessage string
	SubmittedAt  time.Time
	UpdatedAt    time.Time
}

// QueueStore is the persistence contract for the distributed backend.
// Implemented by platform/postgres over a grading_queue table; the
// dispatcher holds no authoritative task state in distributed mode and
// derives everything from here.
type QueueStore interface {
	// Enqueue appends a task in the waiting state.
	Enqueue(ctx context.Context, task *QueuedTask) error

	// Claim atomically moves the oldest waiting task to processing on
	// behalf of workerID and returns it. Returns store.ErrTaskNotFound
	// when the queue is empty. Claims must not hand the same task to
	// two workers.
	Claim(ctx context.Context, workerID string) (*QueuedTask, error)

	// MarkDone transitions a task to done, recording the result location.
	MarkDone(ctx context.Context, taskID, resultID uuid.UUID) error

	// MarkError transitions a task to error with a human-readable summary.
	MarkError(ctx context.Context, taskID uuid.UUID, message string) error

	// Get retrieves one task by identifier, live from the backend.
	// Returns store.ErrTaskNotFound when absent.
	Get(ctx context.Context, taskID uuid.UUID) (*QueuedTask, error)

	// CountByState returns the number of tasks per state.
	CountByState(ctx context.Context) (map[TaskState]int, error)

	// RequeueStale flips tasks stuck in processing longer than maxAge
	// back to waiting, returning how many were reset. Covers workers
	// that died mid-task.
	RequeueStale(ctx context.Context, maxAge time.Duration) (int, error)

	// Heartbeat records that workerID is alive.
	Heartbeat(ctx context.Context, workerID string) error

	// CountWorkers returns the number of workers that heartbeat within
	// the given window.
	CountWorkers(ctx context.Context, within time.Duration) (int, error)
}
