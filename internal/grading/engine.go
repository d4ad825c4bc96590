package grading

import (
	"strconv"

	"github.com/examstack/grading-api/internal/domain"
)

// Outcome is the aggregate produced by grading one job.
type Outcome struct {
	TotalScore int
	MaxScore   int
	Details    []domain.ScoredAnswer
}

// ProgressFunc receives the number of questions graded so far out of the
// total. It is invoked synchronously between questions; implementations
// must be cheap.
type ProgressFunc func(graded, total int)

// Engine iterates an exam's questions and applies the matcher to each.
type Engine struct {
	matcher *Matcher
}

// NewEngine creates a scoring engine around the given matcher.
func NewEngine(matcher *Matcher) *Engine {
	return &Engine{matcher: matcher}
}

// Grade scores every question of the job and aggregates the outcome.
//
// Question ids absent from the snapshot are skipped rather than failing
// the job: a question deleted between exam start and submission must not
// invalidate the attempt. For the same reason MaxScore sums full scores
// over only the questions actually present.
//
// Grading is deterministic for a given job and performs no I/O.
func (e *Engine) Grade(job *domain.GradingJob, progress ProgressFunc) Outcome {
	byID := make(map[int64]domain.ExamQuestion, len(job.Questions))
	for _, q := range job.Questions {
		byID[q.ID] = q
	}

	outcome := Outcome{}
	total := len(job.IDs)

	for i, id := range job.IDs {
		q, ok := byID[id]
		if !ok {
			// Stale reference: the question no longer exists.
			continue
		}

		submitted := job.Answers[strconv.Itoa(i)]
		score := e.matcher.Score(submitted, q.Answer, q.Score)

		outcome.TotalScore += score
		outcome.MaxScore += q.Score
		outcome.Details = append(outcome.Details, domain.ScoredAnswer{
			QuestionID:    q.ID,
			Category:      q.CategoryOrDefault(),
			Question:      q.Content,
			UserAnswer:    submitted,
			CorrectAnswer: q.Answer,
			Score:         score,
			FullScore:     q.Score,
		})

		if progress != nil {
			progress(i+1, total)
		}
	}

	return outcome
}
