package dispatch

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examstack/grading-api/internal/domain"
	"github.com/examstack/grading-api/internal/store"
)

func newTestLocalDispatcher(t *testing.T, executor *Executor, config LocalConfig) *LocalDispatcher {
	t.Helper()
	d := NewLocalDispatcher(executor, config, slog.Default())
	t.Cleanup(d.Stop)
	return d
}

func TestLocalDispatcher_SubmitToDone(t *testing.T) {
	t.Parallel()

	results := newMemResultStore()
	stats := &recordingStats{}
	executor := testExecutor(results, stats, newCapturePublisher())
	d := newTestLocalDispatcher(t, executor, DefaultLocalConfig())

	taskID, err := d.Submit(context.Background(), testJob(42))
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	require.Eventually(t, func() bool {
		status, err := d.Status(context.Background(), taskID)
		return err == nil && status.State == TaskDone
	}, 5*time.Second, 10*time.Millisecond)

	status, err := d.Status(context.Background(), taskID)
	require.NoError(t, err)
	require.NotNil(t, status.Result)
	assert.Equal(t, taskID, status.Result.ID.String())
	assert.Equal(t, 10, status.Result.TotalScore)
	assert.Equal(t, 1, results.count())
	assert.Equal(t, 1, stats.applyCount())
}

func TestLocalDispatcher_RejectsInvalidJob(t *testing.T) {
	t.Parallel()

	d := newTestLocalDispatcher(t,
		testExecutor(newMemResultStore(), &recordingStats{}, newCapturePublisher()),
		DefaultLocalConfig())

	_, err := d.Submit(context.Background(), &domain.GradingJob{UserID: 1})
	assert.ErrorIs(t, err, domain.ErrEmptyQuestionList)

	job := testJob(42)
	job.UserID = 0
	_, err = d.Submit(context.Background(), job)
	assert.ErrorIs(t, err, domain.ErrEmptyJobUserID)
}

func TestLocalDispatcher_QueueFullRejectsSubmission(t *testing.T) {
	t.Parallel()

	stats := &recordingStats{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	executor := testExecutor(newMemResultStore(), stats, newCapturePublisher())

	config := DefaultLocalConfig()
	config.WorkerCount = 1
	config.QueueSize = 1
	d := newTestLocalDispatcher(t, executor, config)

	// First submission is picked up by the single worker, which then
	// blocks inside the statistics call.
	first, err := d.Submit(context.Background(), testJob(1))
	require.NoError(t, err)
	<-stats.started

	// Second fills the one queue slot; third must be rejected, not
	// silently dropped.
	second, err := d.Submit(context.Background(), testJob(2))
	require.NoError(t, err)

	_, err = d.Submit(context.Background(), testJob(3))
	assert.ErrorIs(t, err, ErrQueueFull)

	close(stats.release)

	for _, id := range []string{first, second} {
		require.Eventually(t, func() bool {
			status, err := d.Status(context.Background(), id)
			return err == nil && status.State == TaskDone
		}, 5*time.Second, 10*time.Millisecond)
	}
}

func TestLocalDispatcher_StatusUnknownTask(t *testing.T) {
	t.Parallel()

	d := newTestLocalDispatcher(t,
		testExecutor(newMemResultStore(), &recordingStats{}, newCapturePublisher()),
		DefaultLocalConfig())

	_, err := d.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestLocalDispatcher_SubmitAfterStop(t *testing.T) {
	t.Parallel()

	d := NewLocalDispatcher(
		testExecutor(newMemResultStore(), &recordingStats{}, newCapturePublisher()),
		DefaultLocalConfig(), slog.Default())
	d.Stop()

	_, err := d.Submit(context.Background(), testJob(1))
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}

func TestLocalDispatcher_QueueStats(t *testing.T) {
	t.Parallel()

	stats := &recordingStats{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	executor := testExecutor(newMemResultStore(), stats, newCapturePublisher())

	config := DefaultLocalConfig()
	config.WorkerCount = 1
	config.QueueSize = 10
	d := newTestLocalDispatcher(t, executor, config)

	_, err := d.Submit(context.Background(), testJob(1))
	require.NoError(t, err)
	<-stats.started

	_, err = d.Submit(context.Background(), testJob(2))
	require.NoError(t, err)

	qs := d.QueueStats(context.Background())
	assert.Equal(t, "local", qs.Mode)
	assert.Equal(t, 1, qs.Active)
	assert.Equal(t, 1, qs.Waiting)
	assert.Equal(t, 1, qs.Workers)

	close(stats.release)
}
