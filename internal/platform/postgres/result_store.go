package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/examstack/grading-api/internal/domain"
	"github.com/examstack/grading-api/internal/store"
)

// PostgresResultStore implements the store.ResultStore interface using
// a PostgreSQL database as the storage backend. The per-question
// breakdown is stored as a JSONB column; the scalar columns exist for
// filtering and aggregation queries.
type PostgresResultStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresResultStore creates a new PostgreSQL implementation of the
// ResultStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller. If logger is
// nil, a default logger will be used.
func NewPostgresResultStore(db store.DBTX, logger *slog.Logger) *PostgresResultStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresResultStore{
		db:     db,
		logger: logger.With(slog.String("component", "result_store")),
	}
}

// Ensure PostgresResultStore implements store.ResultStore interface
var _ store.ResultStore = (*PostgresResultStore)(nil)

// WithTx implements store.ResultStore.WithTx
func (s *PostgresResultStore) WithTx(tx *sql.Tx) store.ResultStore {
	return &PostgresResultStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ResultStore.Create
// Returns store.ErrResultExists if the identifier is already in use.
func (s *PostgresResultStore) Create(ctx context.Context, result *domain.ExamResult) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	details, err := json.Marshal(result.Details)
	if err != nil {
		return fmt.Errorf("failed to serialize result details: %w", err)
	}

	query := `
		INSERT INTO exam_results (id, user_id, recorded_at, total_score, max_score, category, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.db.ExecContext(ctx, query,
		result.ID,
		result.UserID,
		result.Timestamp,
		result.TotalScore,
		result.MaxScore,
		result.Category,
		details,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrResultExists, err)
		}
		s.logger.Error("failed to save exam result",
			"result_id", result.ID,
			"error", err)
		return fmt.Errorf("failed to save exam result: %w", MapError(err))
	}

	return nil
}

// Get implements store.ResultStore.Get
// Returns store.ErrResultNotFound if no record exists.
func (s *PostgresResultStore) Get(ctx context.Context, id uuid.UUID) (*domain.ExamResult, error) {
	query := `
		SELECT id, user_id, recorded_at, total_score, max_score, category, details
		FROM exam_results
		WHERE id = $1
	`

	result, err := scanResult(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrResultNotFound
		}
		s.logger.Error("failed to get exam result", "result_id", id, "error", err)
		return nil, fmt.Errorf("failed to get exam result: %w", MapError(err))
	}

	return result, nil
}

// List implements store.ResultStore.List
// Results are returned newest first.
func (s *PostgresResultStore) List(ctx context.Context, userID *int64) ([]*domain.ExamResult, error) {
	var (
		query string
		args  []interface{}
	)

	if userID != nil {
		query = `
			SELECT id, user_id, recorded_at, total_score, max_score, category, details
			FROM exam_results
			WHERE user_id = $1
			ORDER BY recorded_at DESC
		`
		args = []interface{}{*userID}
	} else {
		query = `
			SELECT id, user_id, recorded_at, total_score, max_score, category, details
			FROM exam_results
			ORDER BY recorded_at DESC
		`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to list exam results", "error", err)
		return nil, fmt.Errorf("failed to list exam results: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var results []*domain.ExamResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exam result row: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exam result rows: %w", err)
	}

	return results, nil
}

// Delete implements store.ResultStore.Delete
// Returns store.ErrResultNotFound if no record existed.
func (s *PostgresResultStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM exam_results WHERE id = $1`, id)
	if err != nil {
		s.logger.Error("failed to delete exam result", "result_id", id, "error", err)
		return fmt.Errorf("failed to delete exam result: %w", MapError(err))
	}

	return CheckRowsAffected(result, store.ErrResultNotFound)
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row rowScanner) (*domain.ExamResult, error) {
	var (
		result  domain.ExamResult
		userID  sql.NullInt64
		details []byte
	)

	if err := row.Scan(
		&result.ID,
		&userID,
		&result.Timestamp,
		&result.TotalScore,
		&result.MaxScore,
		&result.Category,
		&details,
	); err != nil {
		return nil, err
	}

	if userID.Valid {
		result.UserID = &userID.Int64
	}

	if err := json.Unmarshal(details, &result.Details); err != nil {
		return nil, fmt.Errorf("failed to parse result details: %w", err)
	}

	return &result, nil
}
