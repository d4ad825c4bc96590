package dispatch

import (
	"context"
	"errors"

	"github.com/examstack/grading-api/internal/domain"
)

// TaskState is the lifecycle state of a grading task. Transitions run
// waiting -> processing -> done|error; done and error are terminal.
type TaskState string

// Possible task states.
const (
	TaskWaiting    TaskState = "waiting"
	TaskProcessing TaskState = "processing"
	TaskDone       TaskState = "done"
	TaskError      TaskState = "error"
)

// Common dispatcher errors.
var (
	// ErrQueueFull is returned by Submit when the local queue bound is
	// reached. The submission is rejected outright, never silently
	// dropped; this is the documented backpressure policy.
	ErrQueueFull = errors.New("grading queue is full")

	// ErrBackendUnavailable is returned by Submit in distributed mode
	// when the queue backend cannot be reached. Surfaced immediately to
	// the caller rather than queued locally.
	ErrBackendUnavailable = errors.New("grading backend unavailable")

	// ErrDispatcherClosed is returned by Submit after shutdown began.
	ErrDispatcherClosed = errors.New("dispatcher is shut down")
)

// TaskStatus is the externally visible state of one task. Error holds a
// human-readable summary once the task reaches the error state and is
// stable from then on.
type TaskStatus struct {
	State  TaskState          `json:"status"`
	Result *domain.ExamResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// QueueStats is a best-effort snapshot of queue health. Fields that
// cannot be determined are zero rather than failing the call.
type QueueStats struct {
	Mode    string `json:"mode"`
	Active  int    `json:"active"`
	Waiting int    `json:"waiting"`
	Workers int    `json:"workers"`
}

// Dispatcher accepts submitted exams and exposes task observability.
type Dispatcher interface {
	// Submit assigns the job a fresh task identifier and schedules it.
	// It returns immediately, never blocking on scoring. Malformed jobs
	// are rejected here and never enqueued.
	Submit(ctx context.Context, job *domain.GradingJob) (string, error)

	// Status reports the current state of a task. Returns
	// store.ErrTaskNotFound when the identifier is unknown to this
	// dispatcher. Distributed implementations query the backend live:
	// the asking process may not be the one that submitted.
	Status(ctx context.Context, taskID string) (*TaskStatus, error)

	// QueueStats reports aggregate queue health, best effort.
	QueueStats(ctx context.Context) QueueStats
}
