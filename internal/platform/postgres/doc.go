// Package postgres provides PostgreSQL implementations of the store
// interfaces and of the distributed grading queue backend. All stores
// accept a store.DBTX, so the same implementation runs against a bare
// connection pool or inside a caller-managed transaction.
package postgres
