package stats

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/examstack/grading-api/internal/domain"
	"github.com/examstack/grading-api/internal/store"
)

// Grant and reward thresholds.
const (
	// grantRatioThreshold and grantMinAttempts gate the standing
	// permission to contribute content to a category.
	grantRatioThreshold = 0.8
	grantMinAttempts    = 3

	// rewardCooldown is the hard per-(user, category) payout rate limit.
	rewardCooldown = 24 * time.Hour
)

// RewardAmount maps a whole-exam percentage to stardust units.
func RewardAmount(percentage float64) int {
	switch {
	case percentage >= 90:
		return 15
	case percentage >= 80:
		return 10
	case percentage >= 60:
		return 5
	default:
		return 0
	}
}

// txRunner abstracts store.RunInTransaction so unit tests can run the
// aggregation logic without a live database.
type txRunner func(ctx context.Context, db *sql.DB, fn store.TxFn) error

// Aggregator owns the UserCategoryStat table and its derived records.
type Aggregator struct {
	db      *sql.DB
	stats   store.StatsStore
	results store.ResultStore
	logger  *slog.Logger

	runTx txRunner
	now   func() time.Time
}

// NewAggregator wires an aggregator over the given stores.
func NewAggregator(db *sql.DB, stats store.StatsStore, results store.ResultStore, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		db:      db,
		stats:   stats,
		results: results,
		logger:  logger.With("component", "stats_aggregator"),
		runTx:   store.RunInTransaction,
		now:     time.Now,
	}
}

// categoryTotals is one category's contribution from a breakdown.
type categoryTotals struct {
	score    int
	possible int
}

// groupByCategory sums a breakdown per category. Keys are returned
// sorted so row locks are always taken in the same order.
func groupByCategory(details []domain.ScoredAnswer) (map[string]categoryTotals, []string) {
	grouped := make(map[string]categoryTotals)
	for _, d := range details {
		cat := d.Category
		if cat == "" {
			cat = domain.DefaultCategory
		}
		t := grouped[cat]
		t.score += d.Score
		t.possible += d.FullScore
		grouped[cat] = t
	}

	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return grouped, keys
}

// Apply folds one scored exam into the user's statistics: per category
// +1 attempt and the summed awarded/possible scores, then the grant
// rule, then the reward payout derived from the whole-exam percentage.
// Everything runs in one transaction; a failure part way leaves no
// partial category updates behind.
func (a *Aggregator) Apply(
	ctx context.Context,
	userID int64,
	category string,
	totalScore, maxScore int,
	details []domain.ScoredAnswer,
) error {
	return a.runTx(ctx, a.db, func(ctx context.Context, tx *sql.Tx) error {
		s := a.stats.WithTx(tx)

		grouped, keys := groupByCategory(details)
		for _, cat := range keys {
			totals := grouped[cat]

			stat, err := s.GetForUpdate(ctx, userID, cat)
			if store.IsNotFoundError(err) {
				stat = &domain.UserCategoryStat{UserID: userID, Category: cat}
			} else if err != nil {
				return fmt.Errorf("failed to load stats for %q: %w", cat, err)
			}

			stat.Attempts++
			stat.TotalScore += totals.score
			stat.TotalPossible += totals.possible

			if err := s.Upsert(ctx, stat); err != nil {
				return fmt.Errorf("failed to update stats for %q: %w", cat, err)
			}

			if err := a.maybeGrant(ctx, s, stat); err != nil {
				return err
			}
		}

		return a.maybePayout(ctx, s, userID, category, totalScore, maxScore)
	})
}

// maybeGrant issues the standing category permission once the mastery
// thresholds are met. Grants are monotonic; an existing grant is left
// alone.
func (a *Aggregator) maybeGrant(ctx context.Context, s store.StatsStore, stat *domain.UserCategoryStat) error {
	if stat.Attempts < grantMinAttempts || stat.Ratio() < grantRatioThreshold {
		return nil
	}

	has, err := s.HasGrant(ctx, stat.UserID, stat.Category)
	if err != nil {
		return fmt.Errorf("failed to check grant for %q: %w", stat.Category, err)
	}
	if has {
		return nil
	}

	a.logger.Info("granting category permission",
		"user_id", stat.UserID, "category", stat.Category)
	return s.CreateGrant(ctx, &domain.CategoryGrant{
		UserID:    stat.UserID,
		Category:  stat.Category,
		GrantedAt: a.now(),
	})
}

// maybePayout pays the stardust tier for the whole-exam percentage,
// unless a payout for this (user, exam category) happened within the
// cooldown window. A blocked payout is skipped entirely, never queued.
//
// Note the asymmetry inherited from the legacy rules: the tier comes
// from the whole exam while the cooldown is keyed by the exam's
// category.
func (a *Aggregator) maybePayout(
	ctx context.Context,
	s store.StatsStore,
	userID int64,
	category string,
	totalScore, maxScore int,
) error {
	if maxScore <= 0 {
		return nil
	}

	amount := RewardAmount(float64(totalScore) / float64(maxScore) * 100)
	if amount == 0 {
		return nil
	}

	cutoff := a.now().Add(-rewardCooldown)
	paid, err := s.LastPayoutSince(ctx, userID, category, cutoff)
	if err != nil {
		return fmt.Errorf("failed to check payout cooldown: %w", err)
	}
	if paid {
		a.logger.Debug("payout skipped, cooldown active",
			"user_id", userID, "category", category)
		return nil
	}

	a.logger.Info("paying reward",
		"user_id", userID, "category", category, "amount", amount)
	return s.CreatePayout(ctx, &domain.RewardPayout{
		UserID:   userID,
		Category: category,
		Amount:   amount,
		PaidAt:   a.now(),
	})
}

// Rollback is the exact inverse of Apply's counter updates, with every
// counter floor-clamped at zero. Grants and payouts are deliberately
// untouched: grants are monotonic and paid stardust stays paid.
func (a *Aggregator) Rollback(ctx context.Context, userID int64, details []domain.ScoredAnswer) error {
	return a.runTx(ctx, a.db, func(ctx context.Context, tx *sql.Tx) error {
		return a.rollbackTx(ctx, a.stats.WithTx(tx), userID, details)
	})
}

func (a *Aggregator) rollbackTx(ctx context.Context, s store.StatsStore, userID int64, details []domain.ScoredAnswer) error {
	grouped, keys := groupByCategory(details)
	for _, cat := range keys {
		totals := grouped[cat]

		stat, err := s.GetForUpdate(ctx, userID, cat)
		if store.IsNotFoundError(err) {
			// Stats were reset externally between scoring and deletion;
			// nothing to decrement.
			continue
		} else if err != nil {
			return fmt.Errorf("failed to load stats for %q: %w", cat, err)
		}

		stat.Attempts = clampZero(stat.Attempts - 1)
		stat.TotalScore = clampZero(stat.TotalScore - totals.score)
		stat.TotalPossible = clampZero(stat.TotalPossible - totals.possible)

		if err := s.Upsert(ctx, stat); err != nil {
			return fmt.Errorf("failed to update stats for %q: %w", cat, err)
		}
	}
	return nil
}

// DeleteResult removes a persisted exam result and rolls back its
// statistics contribution as one logical transaction: the rollback
// happens before the physical delete is committed, so observers never
// see a deleted result still counted.
func (a *Aggregator) DeleteResult(ctx context.Context, id uuid.UUID) error {
	return a.runTx(ctx, a.db, func(ctx context.Context, tx *sql.Tx) error {
		results := a.results.WithTx(tx)

		result, err := results.Get(ctx, id)
		if err != nil {
			return err
		}

		if result.UserID != nil {
			if err := a.rollbackTx(ctx, a.stats.WithTx(tx), *result.UserID, result.Details); err != nil {
				return err
			}
		}

		return results.Delete(ctx, id)
	})
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
