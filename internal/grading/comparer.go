package grading

import (
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// Comparer scores a single submitted answer against a single reference
// variant. Implementations must be stateless: the matcher calls them
// concurrently from multiple workers.
type Comparer interface {
	// Compare returns the score awarded for the submission against this
	// one reference variant: either fullScore or 0 for the built-in
	// strategies.
	Compare(submitted, reference string, fullScore int) int
}

// ExactComparer awards full credit for a case-insensitive,
// whitespace-trimmed exact match and zero otherwise. It is the fallback
// strategy when the fuzzy routine is unavailable or fails.
type ExactComparer struct{}

// Compare implements Comparer.
func (ExactComparer) Compare(submitted, reference string, fullScore int) int {
	if strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(reference)) {
		return fullScore
	}
	return 0
}

// FuzzyComparer is the primary strategy: a lowercased byte-level
// comparison with a small edit-distance tolerance scaled to the length
// of the reference answer. Both strings are encoded as GBK before
// comparison so multi-byte CJK answers tolerate errors per character
// pair rather than per rune; strings that cannot be represented in GBK
// fall back to their UTF-8 bytes.
//
// Tolerance by reference byte length:
//
//	<= 3 bytes: exact match only
//	4-6 bytes:  1 error allowed
//	 > 6 bytes: 2 errors allowed
type FuzzyComparer struct{}

// Compare implements Comparer.
func (FuzzyComparer) Compare(submitted, reference string, fullScore int) int {
	user := encodeForComparison(strings.ToLower(submitted))
	correct := encodeForComparison(strings.ToLower(reference))

	if string(user) == string(correct) {
		return fullScore
	}

	allowed := 0
	switch n := len(correct); {
	case n > 6:
		allowed = 2
	case n >= 4:
		allowed = 1
	}

	if allowed > 0 && levenshtein(user, correct) <= allowed {
		return fullScore
	}
	return 0
}

// encodeForComparison converts s to GBK bytes, falling back to the raw
// UTF-8 bytes when s contains characters outside the GBK repertoire.
func encodeForComparison(s string) []byte {
	b, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return b
}

// levenshtein computes the edit distance between two byte strings with
// unit cost for insertion, deletion and substitution. Single-row DP.
func levenshtein(a, b []byte) int {
	n, m := len(a), len(b)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}

	row := make([]int, m+1)
	for j := 0; j <= m; j++ {
		row[j] = j
	}
	for i := 1; i <= n; i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= m; j++ {
			diag := prev
			prev = row[j]
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min3(row[j]+1, row[j-1]+1, diag+cost)
		}
	}
	return row[m]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
