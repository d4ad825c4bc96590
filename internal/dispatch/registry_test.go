package dispatch

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitingRecord(id string) *taskRecord {
	return &taskRecord{
		id:          id,
		state:       TaskWaiting,
		submittedAt: time.Now(),
	}
}

func TestRegistry_EvictsOldestInBatches(t *testing.T) {
	t.Parallel()

	const limit = 2000
	r := newRegistry(limit)

	for i := 0; i < limit; i++ {
		r.add(waitingRecord(fmt.Sprintf("task-%d", i)))
	}
	require.Equal(t, limit, r.size())

	// The insert that crosses the bound drops the oldest batch first.
	r.add(waitingRecord("one-more"))
	assert.Equal(t, limit-evictionBatch+1, r.size())

	_, ok := r.status("task-0")
	assert.False(t, ok, "oldest entries are evicted")
	_, ok = r.status(fmt.Sprintf("task-%d", evictionBatch))
	assert.True(t, ok, "entries past the batch survive")
	_, ok = r.status("one-more")
	assert.True(t, ok)
}

func TestRegistry_EvictionPrefersFinishedTasks(t *testing.T) {
	t.Parallel()

	const limit = 2000
	const live = 100
	r := newRegistry(limit)

	// The oldest entries are still waiting; everything after them has
	// already finished.
	for i := 0; i < live; i++ {
		r.add(waitingRecord(fmt.Sprintf("live-%d", i)))
	}
	for i := 0; i < limit-live; i++ {
		id := fmt.Sprintf("finished-%d", i)
		r.add(waitingRecord(id))
		_, ok := r.take(id, time.Now())
		require.True(t, ok)
		r.finish(id, nil, "")
	}

	r.add(waitingRecord("one-more"))
	assert.Equal(t, limit-evictionBatch+1, r.size())

	_, ok := r.status("live-0")
	assert.True(t, ok, "accepted submissions survive while finished history remains")
	_, ok = r.status(fmt.Sprintf("live-%d", live-1))
	assert.True(t, ok)

	_, ok = r.status("finished-0")
	assert.False(t, ok, "oldest finished entries go first")
	_, ok = r.status(fmt.Sprintf("finished-%d", evictionBatch))
	assert.True(t, ok)
}

func TestRegistry_TakeTransitionsWaitingOnly(t *testing.T) {
	t.Parallel()

	r := newRegistry(10)
	rec := waitingRecord("t1")
	rec.job = testJob(1)
	r.add(rec)

	job, ok := r.take("t1", time.Now())
	require.True(t, ok)
	assert.NotNil(t, job)

	// A second take must not hand the task out again.
	_, ok = r.take("t1", time.Now())
	assert.False(t, ok)

	_, ok = r.take("unknown", time.Now())
	assert.False(t, ok)
}

func TestRegistry_FinishIsTerminal(t *testing.T) {
	t.Parallel()

	r := newRegistry(10)
	r.add(waitingRecord("t1"))
	_, ok := r.take("t1", time.Now())
	require.True(t, ok)

	r.finish("t1", nil, "boom")
	status, ok := r.status("t1")
	require.True(t, ok)
	assert.Equal(t, TaskError, status.State)
	assert.Equal(t, "boom", status.Error)

	// A late success write against a finished task is ignored.
	r.finish("t1", nil, "")
	status, _ = r.status("t1")
	assert.Equal(t, TaskError, status.State)
}

func TestRegistry_SweepStale(t *testing.T) {
	t.Parallel()

	r := newRegistry(10)
	r.add(waitingRecord("fresh"))
	r.add(waitingRecord("stale"))
	r.add(waitingRecord("still-waiting"))

	now := time.Now()
	_, ok := r.take("stale", now.Add(-time.Hour))
	require.True(t, ok)
	_, ok = r.take("fresh", now)
	require.True(t, ok)

	swept := r.sweepStale(30*time.Minute, now)
	assert.Equal(t, []string{"stale"}, swept)

	status, _ := r.status("stale")
	assert.Equal(t, TaskError, status.State)
	assert.Equal(t, "grading worker stalled", status.Error)

	status, _ = r.status("fresh")
	assert.Equal(t, TaskProcessing, status.State, "recently started tasks are left alone")
	status, _ = r.status("still-waiting")
	assert.Equal(t, TaskWaiting, status.State, "waiting tasks are never swept")
}

func TestRegistry_Counts(t *testing.T) {
	t.Parallel()

	r := newRegistry(10)
	r.add(waitingRecord("w1"))
	r.add(waitingRecord("w2"))
	r.add(waitingRecord("p1"))
	_, ok := r.take("p1", time.Now())
	require.True(t, ok)

	waiting, processing := r.counts()
	assert.Equal(t, 2, waiting)
	assert.Equal(t, 1, processing)
}
