package events

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestMemoryBrokerDeliversToSubscriber(t *testing.T) {
	broker := NewMemoryBroker(testLogger())

	ch, cancel := broker.Subscribe("task-1")
	defer cancel()

	broker.Publish(context.Background(), "task-1", ProgressEvent{
		Status:  StatusProcessing,
		Percent: 10,
	})

	select {
	case ev := <-ch:
		assert.Equal(t, StatusProcessing, ev.Status)
		assert.Equal(t, 10, ev.Percent)
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestMemoryBrokerChannelsAreIsolated(t *testing.T) {
	broker := NewMemoryBroker(testLogger())

	ch, cancel := broker.Subscribe("task-1")
	defer cancel()

	broker.Publish(context.Background(), "task-2", ProgressEvent{Status: StatusDone})

	assert.Empty(t, ch)
}

func TestMemoryBrokerPublishWithoutSubscribersIsDropped(t *testing.T) {
	broker := NewMemoryBroker(testLogger())

	// Must not block or panic; loss of events is tolerated.
	broker.Publish(context.Background(), "task-1", ProgressEvent{Status: StatusDone})
}

func TestMemoryBrokerSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	broker := NewMemoryBroker(testLogger())

	ch, cancel := broker.Subscribe("task-1")
	defer cancel()

	// Overfill the subscriber buffer; extra events are dropped, not
	// delivered late and not blocking.
	for i := 0; i < subscriberBuffer+5; i++ {
		broker.Publish(context.Background(), "task-1", ProgressEvent{
			Status:  StatusProcessing,
			Percent: i,
		})
	}

	assert.Len(t, ch, subscriberBuffer)
}

func TestMemoryBrokerCancelRemovesSubscriber(t *testing.T) {
	broker := NewMemoryBroker(testLogger())

	ch, cancel := broker.Subscribe("task-1")
	cancel()

	broker.Publish(context.Background(), "task-1", ProgressEvent{Status: StatusDone})
	require.Empty(t, ch)
}
