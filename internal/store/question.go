package store

import (
	"context"

	"github.com/examstack/grading-api/internal/domain"
)

// QuestionRepository is the read-only view of the question bank. The
// bank is maintained by a separate admin surface; the grading pipeline
// only ever reads it, to snapshot question content into a job at
// submission time.
type QuestionRepository interface {
	// LoadQuestions returns the full question bank in stable identifier
	// order. An empty bank is not an error.
	LoadQuestions(ctx context.Context) ([]domain.ExamQuestion, error)

	// Categories returns the distinct categories present in the bank,
	// sorted ascending.
	Categories(ctx context.Context) ([]string, error)
}
