// Package store defines the persistence interfaces of the grading
// pipeline and shared helpers for transactional execution. Concrete
// implementations live under internal/platform.
package store
