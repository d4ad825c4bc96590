// Package stats folds scored exams into per-user-per-category running
// totals and derives permission grants and reward payouts from them.
// Every mutation for a single exam result is applied atomically.
package stats
