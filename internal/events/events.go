package events

import "context"

// Progress statuses mirror the dispatcher's task lifecycle.
const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

// ProgressEvent is one notification on a task's channel: an initial
// processing event, a few percentage updates scaled to exam length, and
// a terminal done/error event. The terminal done event carries the
// location of the persisted result.
type ProgressEvent struct {
	Status    string `json:"status"`
	Percent   int    `json:"percent"`
	ResultURL string `json:"result_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Publisher emits progress events on a named channel. The channel name
// is the task identifier. Publish must never block the grading worker;
// undeliverable events are dropped.
type Publisher interface {
	Publish(ctx context.Context, channel string, event ProgressEvent)
}

// Subscriber hands out per-channel event streams, consumed by the
// progress streaming endpoint to push updates to waiting clients.
type Subscriber interface {
	// Subscribe returns a receive channel for the named channel and a
	// cancel function that releases it. Events published while no one
	// is subscribed are dropped.
	Subscribe(channel string) (<-chan ProgressEvent, func())
}
