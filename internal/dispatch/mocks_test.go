package dispatch

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/examstack/grading-api/internal/domain"
	"github.com/examstack/grading-api/internal/events"
	"github.com/examstack/grading-api/internal/grading"
	"github.com/examstack/grading-api/internal/store"
)

// memResultStore is a concurrency-safe in-memory ResultStore.
type memResultStore struct {
	mu         sync.Mutex
	results    map[uuid.UUID]*domain.ExamResult
	failCreate error
}

func newMemResultStore() *memResultStore {
	return &memResultStore{results: make(map[uuid.UUID]*domain.ExamResult)}
}

func (s *memResultStore) Create(_ context.Context, result *domain.ExamResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	if _, ok := s.results[result.ID]; ok {
		return store.ErrResultExists
	}
	s.results[result.ID] = result
	return nil
}

func (s *memResultStore) Get(_ context.Context, id uuid.UUID) (*domain.ExamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[id]
	if !ok {
		return nil, store.ErrResultNotFound
	}
	return result, nil
}

func (s *memResultStore) List(_ context.Context, userID *int64) ([]*domain.ExamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.ExamResult
	for _, r := range s.results {
		if userID == nil || (r.UserID != nil && *r.UserID == *userID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memResultStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return store.ErrResultNotFound
	}
	delete(s.results, id)
	return nil
}

func (s *memResultStore) WithTx(_ *sql.Tx) store.ResultStore { return s }

func (s *memResultStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// recordingStats records Apply calls. An optional gate channel makes the
// call block until released, which lets tests hold a worker mid-task.
type recordingStats struct {
	mu      sync.Mutex
	applied []int64
	fail    error

	started chan struct{}
	release chan struct{}
}

func (s *recordingStats) Apply(_ context.Context, userID int64, _ string, _, _ int, _ []domain.ScoredAnswer) error {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.applied = append(s.applied, userID)
	return nil
}

func (s *recordingStats) applyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.applied)
}

// capturePublisher records every published event per channel.
type capturePublisher struct {
	mu     sync.Mutex
	events map[string][]events.ProgressEvent
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{events: make(map[string][]events.ProgressEvent)}
}

func (p *capturePublisher) Publish(_ context.Context, channel string, event events.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[channel] = append(p.events[channel], event)
}

func (p *capturePublisher) on(channel string) []events.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.ProgressEvent(nil), p.events[channel]...)
}

// memQueueStore is an in-memory QueueStore for distributed-mode tests.
type memQueueStore struct {
	mu          sync.Mutex
	tasks       map[uuid.UUID]*QueuedTask
	order       []uuid.UUID
	workers     map[string]time.Time
	failEnqueue error
}

func newMemQueueStore() *memQueueStore {
	return &memQueueStore{
		tasks:   make(map[uuid.UUID]*QueuedTask),
		workers: make(map[string]time.Time),
	}
}

func (s *memQueueStore) Enqueue(_ context.Context, task *QueuedTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failEnqueue != nil {
		return s.failEnqueue
	}
	cp := *task
	s.tasks[task.ID] = &cp
	s.order = append(s.order, task.ID)
	return nil
}

func (s *memQueueStore) Claim(_ context.Context, _ string) (*QueuedTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		task := s.tasks[id]
		if task.State == TaskWaiting {
			task.State = TaskProcessing
			task.UpdatedAt = time.Now()
			cp := *task
			return &cp, nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (s *memQueueStore) MarkDone(_ context.Context, taskID, resultID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	task.State = TaskDone
	task.ResultID = &resultID
	return nil
}

func (s *memQueueStore) MarkError(_ context.Context, taskID uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	task.State = TaskError
	task.ErrorMessage = message
	return nil
}

func (s *memQueueStore) Get(_ context.Context, taskID uuid.UUID) (*QueuedTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	cp := *task
	return &cp, nil
}

func (s *memQueueStore) CountByState(_ context.Context) (map[TaskState]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[TaskState]int)
	for _, task := range s.tasks {
		counts[task.State]++
	}
	return counts, nil
}

func (s *memQueueStore) RequeueStale(_ context.Context, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	requeued := 0
	for _, task := range s.tasks {
		if task.State == TaskProcessing && task.UpdatedAt.Before(cutoff) {
			task.State = TaskWaiting
			requeued++
		}
	}
	return requeued, nil
}

func (s *memQueueStore) Heartbeat(_ context.Context, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers[workerID] = time.Now()
	return nil
}

func (s *memQueueStore) CountWorkers(_ context.Context, within time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-within)
	count := 0
	for _, seen := range s.workers {
		if seen.After(cutoff) {
			count++
		}
	}
	return count, nil
}

// testExecutor builds a real executor over an exact-match engine and the
// given fakes.
func testExecutor(results store.ResultStore, stats StatsApplier, publisher events.Publisher) *Executor {
	logger := slog.Default()
	engine := grading.NewEngine(grading.NewMatcher(grading.ExactComparer{}, logger))
	return NewExecutor(engine, results, stats, publisher, logger)
}

// examQuestion builds a placeholder bank question with the given id.
func examQuestion(id int64) domain.ExamQuestion {
	return domain.ExamQuestion{
		ID:       id,
		Content:  "q",
		Answer:   "a",
		Score:    5,
		Category: "地理",
	}
}

// testJob is a small well-formed grading job: two questions, one right
// answer, one wrong.
func testJob(userID int64) *domain.GradingJob {
	return &domain.GradingJob{
		IDs: []int64{1, 2},
		Answers: map[string]string{
			"0": "巴黎",
			"1": "wrong",
		},
		Questions: []domain.ExamQuestion{
			{ID: 1, Content: "法国的首都是？", Answer: "巴黎", Score: 10, Category: "地理"},
			{ID: 2, Content: "q2", Answer: "right", Score: 5, Category: "地理"},
		},
		Category: "地理",
		UserID:   userID,
	}
}
