package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ResultTimestampLayout is the layout used for ExamResult.Timestamp.
// The legacy history exporter consumes this exact format, so it is kept
// as a string field rather than a time.Time.
const ResultTimestampLayout = "2006-01-02 15:04:05"

// Common validation errors for ExamResult
var (
	ErrEmptyResultID = errors.New("exam result ID cannot be empty")
	ErrNegativeScore = errors.New("exam result scores cannot be negative")
)

// ScoredAnswer is one line of a result breakdown. Produced by the scoring
// engine and immutable thereafter.
type ScoredAnswer struct {
	QuestionID    int64  `json:"id"`
	Category      string `json:"category"`
	Question      string `json:"question"`
	UserAnswer    string `json:"user_ans"`
	CorrectAnswer string `json:"correct_ans"`
	Score         int    `json:"score"`
	FullScore     int    `json:"full_score"`
}

// ExamResult is the persisted outcome of one graded exam. UserID is nil
// for anonymous or legacy records.
type ExamResult struct {
	ID         uuid.UUID      `json:"id"`
	UserID     *int64         `json:"user_id"`
	Timestamp  string         `json:"timestamp"`
	TotalScore int            `json:"total_score"`
	MaxScore   int            `json:"max_score"`
	Category   string         `json:"category"`
	Details    []ScoredAnswer `json:"details"`
}

// NewExamResult builds a result record for a just-graded exam, stamping
// it with the current wall-clock time. The timestamp reflects scoring
// completion, not submission.
func NewExamResult(
	id uuid.UUID,
	userID int64,
	category string,
	totalScore, maxScore int,
	details []ScoredAnswer,
) (*ExamResult, error) {
	// An exam whose ids all reference since-deleted questions still
	// produces a record: zero over zero with an empty breakdown.
	if details == nil {
		details = []ScoredAnswer{}
	}

	result := &ExamResult{
		ID:         id,
		UserID:     &userID,
		Timestamp:  time.Now().Format(ResultTimestampLayout),
		TotalScore: totalScore,
		MaxScore:   maxScore,
		Category:   category,
		Details:    details,
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}

	return result, nil
}

// Validate checks if the ExamResult has valid data.
func (r *ExamResult) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyResultID
	}
	if r.TotalScore < 0 || r.MaxScore < 0 {
		return ErrNegativeScore
	}
	return nil
}

// Percentage returns the whole-exam score percentage used for reward
// tiering. A zero MaxScore yields zero.
func (r *ExamResult) Percentage() float64 {
	if r.MaxScore <= 0 {
		return 0
	}
	return float64(r.TotalScore) / float64(r.MaxScore) * 100
}
