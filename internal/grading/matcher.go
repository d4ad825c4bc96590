package grading

import (
	"log/slog"
	"strings"
)

// variantSeparator and its full-width equivalent delimit acceptable
// answer variants inside a single reference-answer field.
const (
	variantSeparator          = ";"
	fullWidthVariantSeparator = "；"
)

// SplitVariants splits a raw reference-answer field into its acceptable
// variants. Both the half-width and full-width semicolon are treated as
// separators and each variant is whitespace-trimmed. When splitting
// yields nothing usable the raw string is returned as the sole variant,
// so a matcher never sees zero candidates.
func SplitVariants(answer string) []string {
	normalized := strings.ReplaceAll(answer, fullWidthVariantSeparator, variantSeparator)

	var variants []string
	for _, v := range strings.Split(normalized, variantSeparator) {
		if v = strings.TrimSpace(v); v != "" {
			variants = append(variants, v)
		}
	}

	if len(variants) == 0 {
		return []string{answer}
	}
	return variants
}

// Matcher scores a submitted answer against a reference-answer field.
// It holds no mutable state and may be shared across workers.
type Matcher struct {
	comparer Comparer
	logger   *slog.Logger
}

// NewMatcher creates a Matcher using the given comparison strategy.
// A nil comparer selects the exact-match fallback.
func NewMatcher(comparer Comparer, logger *slog.Logger) *Matcher {
	if comparer == nil {
		comparer = ExactComparer{}
	}
	return &Matcher{
		comparer: comparer,
		logger:   logger,
	}
}

// Score returns the score earned by the submission: the maximum the
// configured comparer awards across all acceptable variants of the
// reference answer. A submission matching any variant earns that
// variant's score; scores never combine across variants.
//
// A panicking comparer degrades to exact matching for that variant only,
// so one bad comparison can never abort a whole exam.
func (m *Matcher) Score(submitted, reference string, fullScore int) int {
	best := 0
	for _, variant := range SplitVariants(reference) {
		score := m.compareOne(submitted, variant, fullScore)
		if score > best {
			best = score
		}
	}
	return best
}

func (m *Matcher) compareOne(submitted, variant string, fullScore int) (score int) {
	defer func() {
		if p := recover(); p != nil {
			if m.logger != nil {
				m.logger.Error("comparer failed, degrading to exact match",
					"panic", p)
			}
			score = ExactComparer{}.Compare(submitted, variant, fullScore)
		}
	}()
	return m.comparer.Compare(submitted, variant, fullScore)
}
