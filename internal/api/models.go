package api

import (
	"github.com/examstack/grading-api/internal/domain"
)

// SubmitExamRequest is the request body for POST /api/exams. Answers are
// keyed by presentation position; positions without an entry grade as an
// empty answer.
type SubmitExamRequest struct {
	UserID   int64             `json:"user_id"  validate:"required"`
	Category string            `json:"category"`
	IDs      []int64           `json:"ids"      validate:"required,min=1"`
	Answers  map[string]string `json:"user_answers"`
}

// SubmitExamResponse carries the handle the client polls with.
type SubmitExamResponse struct {
	TaskID string `json:"task_id"`
}

// TaskStatusResponse mirrors the dispatcher's view of one task.
type TaskStatusResponse struct {
	Status string             `json:"status"`
	Result *domain.ExamResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// QueueStatsResponse is the aggregate queue health snapshot.
type QueueStatsResponse struct {
	Mode    string `json:"mode"`
	Active  int    `json:"active"`
	Waiting int    `json:"waiting"`
	Workers int    `json:"workers"`
}

// CategoryStatResponse is one row of a user's statistics view.
type CategoryStatResponse struct {
	Category      string  `json:"category"`
	Attempts      int     `json:"attempts"`
	TotalScore    int     `json:"total_score"`
	TotalPossible int     `json:"total_possible"`
	Ratio         float64 `json:"ratio"`
	Granted       bool    `json:"granted"`
}
