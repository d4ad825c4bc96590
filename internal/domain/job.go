package domain

import "errors"

// Common validation errors for GradingJob
var (
	ErrEmptyQuestionList = errors.New("grading job must reference at least one question")
	ErrEmptyJobUserID    = errors.New("grading job user ID cannot be zero")
)

// GradingJob is the input to the grading pipeline: the question ordering
// the candidate saw, their answers keyed by presentation position, and a
// full snapshot of the question bank so a worker in another process can
// resolve question content without further lookups.
//
// A job is created once per exam submission and consumed exactly once by
// a worker; it is never mutated after creation.
type GradingJob struct {
	// IDs lists question identifiers in presentation order.
	IDs []int64 `json:"ids"`

	// Answers maps the presentation position (as a decimal string, which
	// survives JSON round-trips losslessly) to the submitted answer text.
	Answers map[string]string `json:"user_answers"`

	// Questions is the full question snapshot the job was built against.
	Questions []ExamQuestion `json:"all_questions"`

	// Category is the question set this attempt was taken under.
	Category string `json:"category"`

	// UserID identifies the submitting user.
	UserID int64 `json:"user_id"`
}

// Validate checks that the job is well formed enough to enqueue.
// Malformed jobs are rejected at submit time and never scheduled.
func (j *GradingJob) Validate() error {
	if len(j.IDs) == 0 {
		return ErrEmptyQuestionList
	}
	if j.UserID == 0 {
		return ErrEmptyJobUserID
	}
	return nil
}
