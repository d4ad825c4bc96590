package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/examstack/grading-api/internal/api/shared"
	"github.com/examstack/grading-api/internal/dispatch"
)

// TaskHandler serves task status and queue health queries.
type TaskHandler struct {
	dispatcher dispatch.Dispatcher
	logger     *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(dispatcher dispatch.Dispatcher, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "task_handler")),
	}
}

// GetStatus handles GET /api/tasks/{id} requests. The answer is the
// dispatcher's authoritative view; progress events are advisory only.
func (h *TaskHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	if taskID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task identifier is required")
		return
	}

	status, err := h.dispatcher.Status(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskStatusResponse{
		Status: string(status.State),
		Result: status.Result,
		Error:  status.Error,
	})
}

// GetQueueStats handles GET /api/queue/stats requests. Best effort: in
// distributed mode a partially unreachable backend yields zeros rather
// than an error.
func (h *TaskHandler) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	stats := h.dispatcher.QueueStats(r.Context())
	shared.RespondWithJSON(w, r, http.StatusOK, QueueStatsResponse{
		Mode:    stats.Mode,
		Active:  stats.Active,
		Waiting: stats.Waiting,
		Workers: stats.Workers,
	})
}
