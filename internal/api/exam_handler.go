// Package api provides HTTP handlers for the grading API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/examstack/grading-api/internal/api/shared"
	"github.com/examstack/grading-api/internal/dispatch"
	"github.com/examstack/grading-api/internal/domain"
	"github.com/examstack/grading-api/internal/store"
)

// ExamHandler handles exam submission requests.
type ExamHandler struct {
	questions  store.QuestionRepository
	dispatcher dispatch.Dispatcher
	validator  *validator.Validate
	logger     *slog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(
	questions store.QuestionRepository,
	dispatcher dispatch.Dispatcher,
	logger *slog.Logger,
) *ExamHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ExamHandler")
	}

	return &ExamHandler{
		questions:  questions,
		dispatcher: dispatcher,
		validator:  validator.New(),
		logger:     logger.With(slog.String("component", "exam_handler")),
	}
}

// Submit handles POST /api/exams requests. It snapshots the current
// question bank into the job, hands the job to the dispatcher and
// returns the task handle immediately; scoring never blocks this call.
func (h *ExamHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Debug("exam submission failed validation", "error", err)
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid exam submission")
		return
	}

	// The snapshot pins question content and scores at submission time;
	// later edits to the bank cannot change what this attempt is graded
	// against.
	snapshot, err := h.questions.LoadQuestions(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load question bank", err)
		return
	}

	category := req.Category
	if category == "" {
		category = domain.DefaultCategory
	}

	job := &domain.GradingJob{
		IDs:       req.IDs,
		Answers:   req.Answers,
		Questions: snapshot,
		Category:  category,
		UserID:    req.UserID,
	}
	if job.Answers == nil {
		job.Answers = map[string]string{}
	}

	taskID, err := h.dispatcher.Submit(r.Context(), job)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("exam submitted",
		"task_id", taskID,
		"user_id", req.UserID,
		"category", category,
		"question_count", len(req.IDs))
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitExamResponse{TaskID: taskID})
}
