package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/examstack/grading-api/internal/domain"
	"github.com/examstack/grading-api/internal/store"
)

// PostgresStatsStore implements the store.StatsStore interface using a
// PostgreSQL database as the storage backend. It owns three tables: the
// user_category_stats aggregates, the category_grants permission records
// and the reward_payouts ledger.
type PostgresStatsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStatsStore creates a new PostgreSQL implementation of the
// StatsStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller. If logger is
// nil, a default logger will be used.
func NewPostgresStatsStore(db store.DBTX, logger *slog.Logger) *PostgresStatsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStatsStore{
		db:     db,
		logger: logger.With(slog.String("component", "stats_store")),
	}
}

// Ensure PostgresStatsStore implements store.StatsStore interface
var _ store.StatsStore = (*PostgresStatsStore)(nil)

// WithTx implements store.StatsStore.WithTx
func (s *PostgresStatsStore) WithTx(tx *sql.Tx) store.StatsStore {
	return &PostgresStatsStore{
		db:     tx,
		logger: s.logger,
	}
}

// GetForUpdate implements store.StatsStore.GetForUpdate
// The row lock is only meaningful when s is bound to a transaction.
func (s *PostgresStatsStore) GetForUpdate(ctx context.Context, userID int64, category string) (*domain.UserCategoryStat, error) {
	query := `
		SELECT user_id, category, attempts, total_score, total_possible
		FROM user_category_stats
		WHERE user_id = $1 AND category = $2
		FOR UPDATE
	`

	var stat domain.UserCategoryStat
	err := s.db.QueryRowContext(ctx, query, userID, category).Scan(
		&stat.UserID,
		&stat.Category,
		&stat.Attempts,
		&stat.TotalScore,
		&stat.TotalPossible,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrStatNotFound
		}
		s.logger.Error("failed to get category stats",
			"user_id", userID, "category", category, "error", err)
		return nil, fmt.Errorf("failed to get category stats: %w", MapError(err))
	}

	return &stat, nil
}

// Upsert implements store.StatsStore.Upsert
func (s *PostgresStatsStore) Upsert(ctx context.Context, stat *domain.UserCategoryStat) error {
	query := `
		INSERT INTO user_category_stats (user_id, category, attempts, total_score, total_possible)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, category) DO UPDATE
		SET attempts = EXCLUDED.attempts,
		    total_score = EXCLUDED.total_score,
		    total_possible = EXCLUDED.total_possible
	`

	_, err := s.db.ExecContext(ctx, query,
		stat.UserID,
		stat.Category,
		stat.Attempts,
		stat.TotalScore,
		stat.TotalPossible,
	)
	if err != nil {
		s.logger.Error("failed to upsert category stats",
			"user_id", stat.UserID, "category", stat.Category, "error", err)
		return fmt.Errorf("failed to upsert category stats: %w", MapError(err))
	}

	return nil
}

// ListByUser implements store.StatsStore.ListByUser
func (s *PostgresStatsStore) ListByUser(ctx context.Context, userID int64) ([]*domain.UserCategoryStat, error) {
	query := `
		SELECT user_id, category, attempts, total_score, total_possible
		FROM user_category_stats
		WHERE user_id = $1
		ORDER BY category ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		s.logger.Error("failed to list category stats", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list category stats: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var stats []*domain.UserCategoryStat
	for rows.Next() {
		var stat domain.UserCategoryStat
		if err := rows.Scan(
			&stat.UserID,
			&stat.Category,
			&stat.Attempts,
			&stat.TotalScore,
			&stat.TotalPossible,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category stats row: %w", err)
		}
		stats = append(stats, &stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category stats rows: %w", err)
	}

	return stats, nil
}

// HasGrant implements store.StatsStore.HasGrant
func (s *PostgresStatsStore) HasGrant(ctx context.Context, userID int64, category string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM category_grants
			WHERE user_id = $1 AND category = $2
		)
	`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, userID, category).Scan(&exists); err != nil {
		s.logger.Error("failed to check category grant",
			"user_id", userID, "category", category, "error", err)
		return false, fmt.Errorf("failed to check category grant: %w", MapError(err))
	}

	return exists, nil
}

// CreateGrant implements store.StatsStore.CreateGrant
// Re-inserting an existing grant is a no-op, which keeps grants
// monotonic even under concurrent qualifying exams.
func (s *PostgresStatsStore) CreateGrant(ctx context.Context, grant *domain.CategoryGrant) error {
	query := `
		INSERT INTO category_grants (user_id, category, granted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, category) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query, grant.UserID, grant.Category, grant.GrantedAt)
	if err != nil {
		s.logger.Error("failed to create category grant",
			"user_id", grant.UserID, "category", grant.Category, "error", err)
		return fmt.Errorf("failed to create category grant: %w", MapError(err))
	}

	return nil
}

// LastPayoutSince implements store.StatsStore.LastPayoutSince
func (s *PostgresStatsStore) LastPayoutSince(ctx context.Context, userID int64, category string, cutoff time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reward_payouts
			WHERE user_id = $1 AND category = $2 AND paid_at >= $3
		)
	`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, userID, category, cutoff).Scan(&exists); err != nil {
		s.logger.Error("failed to check payout ledger",
			"user_id", userID, "category", category, "error", err)
		return false, fmt.Errorf("failed to check payout ledger: %w", MapError(err))
	}

	return exists, nil
}

// CreatePayout implements store.StatsStore.CreatePayout
func (s *PostgresStatsStore) CreatePayout(ctx context.Context, payout *domain.RewardPayout) error {
	query := `
		INSERT INTO reward_payouts (user_id, category, amount, paid_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.ExecContext(ctx, query, payout.UserID, payout.Category, payout.Amount, payout.PaidAt)
	if err != nil {
		s.logger.Error("failed to record payout",
			"user_id", payout.UserID, "category", payout.Category, "error", err)
		return fmt.Errorf("failed to record payout: %w", MapError(err))
	}

	return nil
}
