package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/examstack/grading-api/internal/domain"
)

// StatsStore defines the interface for the per-user-per-category
// aggregates and the derived grant/payout records.
type StatsStore interface {
	// GetForUpdate retrieves one aggregate with a row-level lock
	// (SELECT ... FOR UPDATE). Use inside a transaction when the row
	// will be modified. Returns ErrStatNotFound when absent.
	GetForUpdate(ctx context.Context, userID int64, category string) (*domain.UserCategoryStat, error)

	// Upsert creates or replaces the aggregate for its (user, category) key.
	Upsert(ctx context.Context, stat *domain.UserCategoryStat) error

	// ListByUser returns all aggregates for one user.
	ListByUser(ctx context.Context, userID int64) ([]*domain.UserCategoryStat, error)

	// HasGrant reports whether a standing permission exists for the pair.
	HasGrant(ctx context.Context, userID int64, category string) (bool, error)

	// CreateGrant inserts a permission record. Inserting an existing
	// grant is a no-op: grants are monotonic.
	CreateGrant(ctx context.Context, grant *domain.CategoryGrant) error

	// LastPayoutSince reports whether the user received a payout for the
	// category at or after the cutoff instant.
	LastPayoutSince(ctx context.Context, userID int64, category string, cutoff time.Time) (bool, error)

	// CreatePayout appends an entry to the payout ledger.
	CreatePayout(ctx context.Context, payout *domain.RewardPayout) error

	// WithTx returns a StatsStore bound to the provided transaction.
	WithTx(tx *sql.Tx) StatsStore
}
