// Package domain contains the core entities of the grading pipeline
// and their validation logic.
package domain
