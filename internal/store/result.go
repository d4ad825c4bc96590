package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/examstack/grading-api/internal/domain"
)

// ResultStore defines the interface for exam result persistence.
type ResultStore interface {
	// Create persists a scored exam as an immutable record.
	// Returns ErrResultExists if the identifier is already in use and a
	// wrapped error if the underlying store is unreachable; the caller
	// must retry or surface the failure rather than drop the result.
	Create(ctx context.Context, result *domain.ExamResult) error

	// Get retrieves a result by its identifier.
	// Returns ErrResultNotFound if no record exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.ExamResult, error)

	// List returns persisted results, optionally filtered to one user
	// when userID is non-nil. Ordering is the caller's responsibility.
	List(ctx context.Context, userID *int64) ([]*domain.ExamResult, error)

	// Delete removes a result by identifier.
	// Returns ErrResultNotFound if no record existed. Callers that need
	// the compensating statistics rollback must go through the stats
	// service, which wraps the load, rollback and delete in one
	// transaction.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a ResultStore bound to the provided transaction.
	WithTx(tx *sql.Tx) ResultStore
}
