package domain

import "time"

// UserCategoryStat is the running aggregate for one user in one question
// category. It is created lazily on the first attempt in a category,
// incremented on every new result and decremented (never below zero)
// when a result is deleted.
type UserCategoryStat struct {
	UserID        int64  `json:"user_id"`
	Category      string `json:"category"`
	Attempts      int    `json:"attempts"`
	TotalScore    int    `json:"total_score"`
	TotalPossible int    `json:"total_possible"`
}

// Ratio returns the cumulative awarded/possible ratio for grant
// evaluation. A zero TotalPossible yields zero.
func (s UserCategoryStat) Ratio() float64 {
	if s.TotalPossible <= 0 {
		return 0
	}
	return float64(s.TotalScore) / float64(s.TotalPossible)
}

// CategoryGrant records a standing permission for a user to contribute
// content to a category, earned by demonstrated mastery. Grants are
// monotonic: once issued they are never revoked automatically, including
// on statistics rollback.
type CategoryGrant struct {
	UserID    int64     `json:"user_id"`
	Category  string    `json:"category"`
	GrantedAt time.Time `json:"granted_at"`
}

// RewardPayout is one entry of the stardust payout ledger. The ledger
// backs the 24-hour per-(user, category) payout cooldown.
type RewardPayout struct {
	UserID   int64     `json:"user_id"`
	Category string    `json:"category"`
	Amount   int       `json:"amount"`
	PaidAt   time.Time `json:"paid_at"`
}
