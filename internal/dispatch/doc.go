// Package dispatch schedules grading jobs onto one of two
// interchangeable execution backends: an in-process worker pool or a
// Postgres-backed queue consumed by separate worker processes. Both
// implement the same Dispatcher contract and are selected once at
// startup, never mixed at runtime.
package dispatch
