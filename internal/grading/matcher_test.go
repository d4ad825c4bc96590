package grading

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestSplitVariants(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   []string
	}{
		{
			name:   "single variant",
			answer: "Paris",
			want:   []string{"Paris"},
		},
		{
			name:   "half-width separator",
			answer: "Paris;巴黎",
			want:   []string{"Paris", "巴黎"},
		},
		{
			name:   "full-width separator",
			answer: "Paris；巴黎",
			want:   []string{"Paris", "巴黎"},
		},
		{
			name:   "mixed separators with whitespace",
			answer: " Paris ;巴黎； France ",
			want:   []string{"Paris", "巴黎", "France"},
		},
		{
			name:   "empty segments dropped",
			answer: "Paris;;；;巴黎",
			want:   []string{"Paris", "巴黎"},
		},
		{
			name:   "only separators falls back to raw string",
			answer: ";；;",
			want:   []string{";；;"},
		},
		{
			name:   "empty answer falls back to raw string",
			answer: "",
			want:   []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitVariants(tt.answer))
		})
	}
}

func TestMatcherScoreTakesMaximumAcrossVariants(t *testing.T) {
	m := NewMatcher(FuzzyComparer{}, testLogger())

	// Matching the second variant earns full credit.
	assert.Equal(t, 10, m.Score("巴黎", "Paris;巴黎", 10))
	// Matching the first variant earns full credit.
	assert.Equal(t, 10, m.Score("paris", "Paris;巴黎", 10))
	// Matching no variant earns nothing.
	assert.Equal(t, 0, m.Score("London", "Paris;巴黎", 10))
}

func TestExactComparerFallback(t *testing.T) {
	m := NewMatcher(ExactComparer{}, testLogger())

	// Case-insensitive, whitespace-trimmed equality.
	assert.Equal(t, 10, m.Score(" Yes ", "yes", 10))
	assert.Equal(t, 0, m.Score("no", "yes", 10))
	// No partial credit from the exact strategy.
	assert.Equal(t, 0, m.Score("yess", "yes", 10))
}

func TestFuzzyComparerTolerance(t *testing.T) {
	c := FuzzyComparer{}

	tests := []struct {
		name      string
		submitted string
		reference string
		want      int
	}{
		{"exact match", "paris", "Paris", 10},
		{"short reference requires exact", "cat", "car", 0},
		{"medium reference allows one error", "parjs", "paris", 10},
		{"medium reference rejects two errors", "parjz", "paris", 0},
		{"long reference allows two errors", "mitochondira", "mitochondria", 10},
		{"long reference rejects three errors", "mitochandura", "mitochondria", 0},
		{"empty submission scores zero", "", "paris", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Compare(tt.submitted, tt.reference, 10))
		})
	}
}

func TestFuzzyComparerCJKUsesEncodedBytes(t *testing.T) {
	c := FuzzyComparer{}

	// 巴黎 encodes to 4 GBK bytes, so one byte-level error is tolerated:
	// a single wrong character differs in at most two bytes, which is
	// over the allowance, while an exact match passes.
	assert.Equal(t, 10, c.Compare("巴黎", "巴黎", 10))
	assert.Equal(t, 0, c.Compare("巴布", "巴黎", 10))
}

// panicComparer simulates a failing native comparison routine.
type panicComparer struct{}

func (panicComparer) Compare(_, _ string, _ int) int {
	panic("native routine unavailable")
}

func TestMatcherDegradesToExactOnComparerPanic(t *testing.T) {
	m := NewMatcher(panicComparer{}, testLogger())

	// The panic is contained and the exact fallback still grades the
	// variant correctly.
	assert.Equal(t, 5, m.Score("yes", "Yes;No", 5))
	assert.Equal(t, 0, m.Score("maybe", "Yes;No", 5))
}
