package api

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/examstack/grading-api/internal/api/shared"
	"github.com/examstack/grading-api/internal/domain"
	"github.com/examstack/grading-api/internal/store"
)

// ResultDeleter removes a result together with its statistics
// contribution. Implemented by the stats aggregator; a bare store
// delete would leave the statistics counting a record that no longer
// exists.
type ResultDeleter interface {
	DeleteResult(ctx context.Context, id uuid.UUID) error
}

// ResultHandler serves the exam history: listing, detail view, deletion
// and CSV export.
type ResultHandler struct {
	results store.ResultStore
	stats   store.StatsStore
	deleter ResultDeleter
	logger  *slog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(
	results store.ResultStore,
	stats store.StatsStore,
	deleter ResultDeleter,
	logger *slog.Logger,
) *ResultHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ResultHandler")
	}

	return &ResultHandler{
		results: results,
		stats:   stats,
		deleter: deleter,
		logger:  logger.With(slog.String("component", "result_handler")),
	}
}

// userIDFilter parses the optional user_id query parameter.
func userIDFilter(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id %q", raw)
	}
	return &id, nil
}

// List handles GET /api/results requests, newest first. An optional
// user_id query parameter restricts the listing to one user.
func (h *ResultHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFilter(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user_id parameter")
		return
	}

	results, err := h.results.List(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to list results", err)
		return
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp > results[j].Timestamp
	})
	if results == nil {
		results = []*domain.ExamResult{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, results)
}

// Get handles GET /api/results/{id} requests.
func (h *ResultHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid result identifier")
		return
	}

	result, err := h.results.Get(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Delete handles DELETE /api/results/{id} requests. Deletion rolls the
// result's statistics contribution back in the same transaction.
func (h *ResultHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid result identifier")
		return
	}

	if err := h.deleter.DeleteResult(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("exam result deleted", "result_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/results/export requests, producing the exam
// history as CSV. The byte order mark keeps spreadsheet applications
// from garbling the CJK headers.
func (h *ResultHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFilter(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user_id parameter")
		return
	}

	results, err := h.results.List(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to export results", err)
		return
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp > results[j].Timestamp
	})

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment;filename=exam_history.csv")
	if _, err := w.Write([]byte("\xEF\xBB\xBF")); err != nil {
		h.logger.Error("failed to write CSV preamble", "error", err)
		return
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"用户", "时间", "得分", "满分", "得分率"}); err != nil {
		h.logger.Error("failed to write CSV header", "error", err)
		return
	}

	for _, result := range results {
		user := "Unknown"
		if result.UserID != nil {
			user = strconv.FormatInt(*result.UserID, 10)
		}
		percentage := "0.0%"
		if result.MaxScore > 0 {
			percentage = fmt.Sprintf("%.1f%%", result.Percentage())
		}
		if err := writer.Write([]string{
			user,
			result.Timestamp,
			strconv.Itoa(result.TotalScore),
			strconv.Itoa(result.MaxScore),
			percentage,
		}); err != nil {
			h.logger.Error("failed to write CSV row", "result_id", result.ID, "error", err)
			return
		}
	}
	writer.Flush()
}

// UserStats handles GET /api/users/{id}/stats requests: the per-category
// aggregates with the grant flag resolved for each row.
func (h *ResultHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user identifier")
		return
	}

	stats, err := h.stats.ListByUser(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load user statistics", err)
		return
	}

	response := make([]CategoryStatResponse, 0, len(stats))
	for _, stat := range stats {
		granted, err := h.stats.HasGrant(r.Context(), userID, stat.Category)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"Failed to load user statistics", err)
			return
		}
		response = append(response, CategoryStatResponse{
			Category:      stat.Category,
			Attempts:      stat.Attempts,
			TotalScore:    stat.TotalScore,
			TotalPossible: stat.TotalPossible,
			Ratio:         stat.Ratio(),
			Granted:       granted,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}
