package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/examstack/grading-api/internal/api/shared"
	"github.com/examstack/grading-api/internal/events"
)

// EventsHandler streams grading progress to waiting clients over
// server-sent events. The stream is advisory: events are at-most-once
// and a client that misses some (or all) of them still converges by
// polling the status endpoint.
type EventsHandler struct {
	subscriber events.Subscriber
	logger     *slog.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(subscriber events.Subscriber, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for EventsHandler")
	}

	return &EventsHandler{
		subscriber: subscriber,
		logger:     logger.With(slog.String("component", "events_handler")),
	}
}

// Stream handles GET /api/tasks/{id}/events requests. The connection
// closes after a terminal event or when the client goes away.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	if taskID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task identifier is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	ch, cancel := h.subscriber.Subscribe(taskID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-ch:
			if !open {
				return
			}

			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to encode progress event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()

			if event.Status == events.StatusDone || event.Status == events.StatusError {
				return
			}
		}
	}
}
