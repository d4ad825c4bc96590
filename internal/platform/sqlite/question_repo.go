// Package sqlite provides the read-only sqlite implementation of the
// question repository. The question bank file is owned and written by
// the admin surface; this package never modifies it.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/examstack/grading-api/internal/domain"
	"github.com/examstack/grading-api/internal/store"
)

// QuestionRepo reads exam questions from a sqlite question bank.
type QuestionRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the question bank at path in read-only mode. The returned
// repository is safe for concurrent use.
func Open(path string, logger *slog.Logger) (*QuestionRepo, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open question bank: %w", err)
	}

	return &QuestionRepo{
		db:     db,
		logger: logger.With(slog.String("component", "question_repo")),
	}, nil
}

// NewQuestionRepo wraps an already-open database handle. Used by tests
// that build an in-memory bank.
func NewQuestionRepo(db *sql.DB, logger *slog.Logger) *QuestionRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuestionRepo{
		db:     db,
		logger: logger.With(slog.String("component", "question_repo")),
	}
}

// Ensure QuestionRepo implements store.QuestionRepository interface
var _ store.QuestionRepository = (*QuestionRepo)(nil)

// Close releases the underlying database handle.
func (r *QuestionRepo) Close() error {
	return r.db.Close()
}

// LoadQuestions implements store.QuestionRepository.LoadQuestions.
// Rows with defaults left blank get the legacy loader's fallbacks: an
// empty image and the default category. Question content uses the
// legacy [NEWLINE] placeholder for line breaks, decoded here.
func (r *QuestionRepo) LoadQuestions(ctx context.Context) ([]domain.ExamQuestion, error) {
	query := `
		SELECT id, content, answer, score, image, category
		FROM questions
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to load question bank", "error", err)
		return nil, fmt.Errorf("failed to load question bank: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var questions []domain.ExamQuestion
	for rows.Next() {
		var (
			q        domain.ExamQuestion
			image    sql.NullString
			category sql.NullString
		)
		if err := rows.Scan(&q.ID, &q.Content, &q.Answer, &q.Score, &image, &category); err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}

		q.Content = strings.ReplaceAll(q.Content, "[NEWLINE]", "\n")
		q.Image = image.String
		q.Category = category.String
		if q.Category == "" {
			q.Category = domain.DefaultCategory
		}

		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating question rows: %w", err)
	}

	return questions, nil
}

// Categories implements store.QuestionRepository.Categories.
func (r *QuestionRepo) Categories(ctx context.Context) ([]string, error) {
	questions, err := r.LoadQuestions(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var categories []string
	for _, q := range questions {
		if _, ok := seen[q.Category]; ok {
			continue
		}
		seen[q.Category] = struct{}{}
		categories = append(categories, q.Category)
	}

	sort.Strings(categories)
	return categories, nil
}
