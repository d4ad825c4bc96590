package dispatch

import (
	"sync"
	"time"

	"github.com/examstack/grading-api/internal/domain"
)

// evictionBatch is how many of the oldest records are dropped when the
// registry exceeds its limit. Same policy as the legacy queue: trim in
// chunks rather than one-by-one on every insert.
const evictionBatch = 500

// taskRecord is the dispatcher-internal bookkeeping for one local-mode
// task.
type taskRecord struct {
	id          string
	userID      int64
	state       TaskState
	submittedAt time.Time
	startedAt   time.Time
	job         *domain.GradingJob
	result      *domain.ExamResult
	errMessage  string
}

// registry is the shared mutable task table of the local dispatcher.
// Submissions write from request goroutines while workers update and
// other requests read, so every access goes through the mutex. Growth
// is bounded: once the table exceeds limit, the oldest entries are
// evicted in batches.
type registry struct {
	mu    sync.Mutex
	limit int
	byID  map[string]*taskRecord
	order []string
}

func newRegistry(limit int) *registry {
	return &registry{
		limit: limit,
		byID:  make(map[string]*taskRecord),
	}
}

// add inserts a record, evicting the oldest entries when the table is
// over its bound. Terminal records go first; waiting and processing
// tasks are only evicted once no finished ones remain, so an accepted
// submission is not discarded while completed history is still held.
// Evicted tasks become unknown to Status; clients still waiting on them
// see a not-found answer, which is the accepted cost of bounded memory.
func (r *registry) add(rec *taskRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.byID) >= r.limit {
		r.evictLocked(evictionBatch)
	}

	r.byID[rec.id] = rec
	r.order = append(r.order, rec.id)
}

// evictLocked drops up to n records, oldest first within each pass:
// terminal states in the first pass, everything else in the second.
// Caller holds the mutex.
func (r *registry) evictLocked(n int) {
	drop := make(map[string]bool, n)
	for _, id := range r.order {
		if len(drop) >= n {
			break
		}
		state := r.byID[id].state
		if state == TaskDone || state == TaskError {
			drop[id] = true
		}
	}
	for _, id := range r.order {
		if len(drop) >= n {
			break
		}
		if !drop[id] {
			drop[id] = true
		}
	}

	kept := r.order[:0]
	for _, id := range r.order {
		if drop[id] {
			delete(r.byID, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

// remove deletes a record outright (used when enqueueing fails after
// registration).
func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// status returns a copy-safe snapshot of one task's visible state.
func (r *registry) status(id string) (*TaskStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return &TaskStatus{
		State:  rec.state,
		Result: rec.result,
		Error:  rec.errMessage,
	}, true
}

// take marks a waiting task as processing and hands its job to the
// worker. Returns false when the record was evicted or is no longer
// waiting; the worker skips such ids.
func (r *registry) take(id string, now time.Time) (*domain.GradingJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok || rec.state != TaskWaiting {
		return nil, false
	}
	rec.state = TaskProcessing
	rec.startedAt = now
	return rec.job, true
}

// finish records a terminal state. Terminal states never transition
// again; a late write against a finished task is ignored.
func (r *registry) finish(id string, result *domain.ExamResult, errMessage string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok || rec.state == TaskDone || rec.state == TaskError {
		return
	}
	if errMessage != "" {
		rec.state = TaskError
		rec.errMessage = errMessage
	} else {
		rec.state = TaskDone
		rec.result = result
	}
	rec.job = nil // job payload is no longer needed once terminal
}

// sweepStale flips tasks stuck in processing longer than maxAge into
// the error state and returns their ids. A crashed worker leaves its
// task processing forever otherwise; this makes the stall observable
// through Status.
func (r *registry) sweepStale(maxAge time.Duration, now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []string
	for id, rec := range r.byID {
		if rec.state == TaskProcessing && now.Sub(rec.startedAt) > maxAge {
			rec.state = TaskError
			rec.errMessage = "grading worker stalled"
			rec.job = nil
			stale = append(stale, id)
		}
	}
	return stale
}

// counts returns the number of waiting and processing tasks.
func (r *registry) counts() (waiting, processing int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.byID {
		switch rec.state {
		case TaskWaiting:
			waiting++
		case TaskProcessing:
			processing++
		}
	}
	return waiting, processing
}

// size returns the number of retained records.
func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
