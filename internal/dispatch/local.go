package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/examstack/grading-api/internal/domain"
	"github.com/examstack/grading-api/internal/store"
)

// LocalConfig tunes the in-process worker pool.
type LocalConfig struct {
	// WorkerCount is the number of long-lived grading goroutines.
	WorkerCount int

	// QueueSize bounds the shared FIFO queue of task identifiers.
	QueueSize int

	// RegistryLimit bounds the in-memory task table.
	RegistryLimit int

	// StuckTaskAge is how long a task may stay in processing before the
	// sweep surfaces it as errored.
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval is how often the sweep runs. Defaults to
	// five minutes when zero.
	StuckTaskCheckInterval time.Duration
}

// DefaultLocalConfig returns a LocalConfig with the legacy deployment's
// defaults.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		WorkerCount:            2,
		QueueSize:              100,
		RegistryLimit:          2000,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// LocalDispatcher runs grading on a fixed pool of worker goroutines
// consuming a single bounded FIFO queue. Task bookkeeping lives in an
// in-memory registry, so task identifiers are only meaningful to this
// process.
type LocalDispatcher struct {
	executor *Executor
	registry *registry
	queue    chan string
	config   LocalConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewLocalDispatcher creates the dispatcher and starts its workers and
// the stuck-task sweep.
func NewLocalDispatcher(executor *Executor, config LocalConfig, logger *slog.Logger) *LocalDispatcher {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &LocalDispatcher{
		executor: executor,
		registry: newRegistry(config.RegistryLimit),
		queue:    make(chan string, config.QueueSize),
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.With("component", "local_dispatcher"),
	}

	for i := 0; i < config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.wg.Add(1)
	go d.stuckTaskMonitor()

	return d
}

// Submit implements Dispatcher. The task identifier is generated here,
// independently of any backend. When the queue bound is reached the
// submission is rejected with ErrQueueFull.
func (d *LocalDispatcher) Submit(ctx context.Context, job *domain.GradingJob) (string, error) {
	if err := job.Validate(); err != nil {
		return "", fmt.Errorf("invalid grading job: %w", err)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", ErrDispatcherClosed
	}
	d.mu.Unlock()

	id := uuid.New().String()
	d.registry.add(&taskRecord{
		id:          id,
		userID:      job.UserID,
		state:       TaskWaiting,
		submittedAt: time.Now(),
		job:         job,
	})

	select {
	case d.queue <- id:
	default:
		d.registry.remove(id)
		return "", fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(d.queue))
	}

	d.logger.Debug("task enqueued",
		"task_id", id,
		"user_id", job.UserID,
		"queue_len", len(d.queue),
		"queue_cap", cap(d.queue))
	return id, nil
}

// Status implements Dispatcher.
func (d *LocalDispatcher) Status(_ context.Context, taskID string) (*TaskStatus, error) {
	status, ok := d.registry.status(taskID)
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return status, nil
}

// QueueStats implements Dispatcher.
func (d *LocalDispatcher) QueueStats(_ context.Context) QueueStats {
	waiting, processing := d.registry.counts()
	return QueueStats{
		Mode:    "local",
		Active:  processing,
		Waiting: waiting,
		Workers: d.config.WorkerCount,
	}
}

// Stop shuts the pool down, letting in-flight tasks finish. Waiting
// tasks still queued are abandoned in the waiting state.
func (d *LocalDispatcher) Stop() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}

// worker consumes task identifiers until shutdown. Each worker runs one
// task at a time to completion; a task is never shared between workers
// because take() transitions it out of waiting under the registry lock.
func (d *LocalDispatcher) worker(id int) {
	defer d.wg.Done()

	log := d.logger.With("worker_id", id)
	log.Debug("starting grading worker")

	for {
		select {
		case <-d.ctx.Done():
			log.Debug("stopping grading worker")
			return
		case taskID := <-d.queue:
			job, ok := d.registry.take(taskID, time.Now())
			if !ok {
				// Evicted or already handled; nothing to do.
				continue
			}
			d.process(taskID, job, log)
		}
	}
}

func (d *LocalDispatcher) process(taskID string, job *domain.GradingJob, log *slog.Logger) {
	log.Info("processing grading task", "task_id", taskID)

	id, err := uuid.Parse(taskID)
	if err != nil {
		d.registry.finish(taskID, nil, "malformed task identifier")
		return
	}

	result, err := d.executor.Execute(d.ctx, id, job)
	if err != nil {
		d.registry.finish(taskID, nil, err.Error())
		return
	}
	d.registry.finish(taskID, result, "")
}

// stuckTaskMonitor periodically surfaces tasks stuck in processing as
// errored. A worker goroutine cannot crash without panicking the whole
// process, but a hung comparer or store call would otherwise leave the
// task processing forever.
func (d *LocalDispatcher) stuckTaskMonitor() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			stale := d.registry.sweepStale(d.config.StuckTaskAge, time.Now())
			if len(stale) > 0 {
				d.logger.Warn("marked stuck tasks as errored",
					"count", len(stale))
			}
		}
	}
}
