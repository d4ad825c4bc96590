// Package grading implements the answer matcher and the scoring engine.
// Both are pure with respect to their inputs and safe for concurrent use
// by multiple workers.
package grading
