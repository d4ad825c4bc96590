package events

import (
	"context"
	"log/slog"
	"sync"
)

// subscriberBuffer is the per-subscriber channel capacity. A slow
// consumer loses intermediate events rather than stalling a worker.
const subscriberBuffer = 16

// MemoryBroker is an in-process Publisher/Subscriber for local mode.
// Subscribers are registered under the task identifier; publishing
// fans out to every registered channel without blocking.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string][]chan ProgressEvent
	logger *slog.Logger
}

// NewMemoryBroker creates an empty broker.
func NewMemoryBroker(logger *slog.Logger) *MemoryBroker {
	return &MemoryBroker{
		subs:   make(map[string][]chan ProgressEvent),
		logger: logger.With("component", "memory_broker"),
	}
}

// Publish implements Publisher. Sends are non-blocking; events for full
// or absent subscriber channels are dropped.
func (b *MemoryBroker) Publish(_ context.Context, channel string, event ProgressEvent) {
	b.mu.RLock()
	subs := make([]chan ProgressEvent, len(b.subs[channel]))
	copy(subs, b.subs[channel])
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropping progress event for slow subscriber",
				"channel", channel, "status", event.Status)
		}
	}
}

// Subscribe implements Subscriber.
func (b *MemoryBroker) Subscribe(channel string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, subscriberBuffer)

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[channel]
		for i, c := range subs {
			if c == ch {
				b.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(b.subs[channel]) == 0 {
			delete(b.subs, channel)
		}
	}
	return ch, cancel
}
