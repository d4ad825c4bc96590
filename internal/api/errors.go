package api

import (
	"errors"
	"net/http"

	"github.com/examstack/grading-api/internal/dispatch"
	"github.com/examstack/grading-api/internal/domain"
	"github.com/examstack/grading-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Backpressure: the queue bound was reached and the submission was
	// rejected rather than silently dropped.
	case errors.Is(err, dispatch.ErrQueueFull):
		return http.StatusTooManyRequests

	// The distributed backend or the dispatcher itself is down.
	case errors.Is(err, dispatch.ErrBackendUnavailable),
		errors.Is(err, dispatch.ErrDispatcherClosed):
		return http.StatusServiceUnavailable

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrEmptyQuestionList),
		errors.Is(err, domain.ErrEmptyJobUserID):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, dispatch.ErrQueueFull):
		return "Grading queue is full, try again shortly"

	case errors.Is(err, dispatch.ErrBackendUnavailable),
		errors.Is(err, dispatch.ErrDispatcherClosed):
		return "Grading service is unavailable"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrResultNotFound):
		return "Result not found"

	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	case errors.Is(err, store.ErrDuplicate):
		return "Already exists"

	case errors.Is(err, domain.ErrEmptyQuestionList):
		return "Exam must contain at least one question"

	case errors.Is(err, domain.ErrEmptyJobUserID):
		return "User identifier is required"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}
