package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examstack/grading-api/internal/store"
)

func pgError(code string) *pgconn.PgError {
	return &pgconn.PgError{Code: code, ConstraintName: "some_constraint"}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantIs   error
		wantSame bool
	}{
		{name: "nil passes through", err: nil, wantSame: true},
		{name: "no rows maps to not found", err: sql.ErrNoRows, wantIs: store.ErrNotFound},
		{name: "wrapped no rows maps to not found", err: fmt.Errorf("query: %w", sql.ErrNoRows), wantIs: store.ErrNotFound},
		{name: "unique violation maps to duplicate", err: pgError(uniqueViolationCode), wantIs: store.ErrDuplicate},
		{name: "foreign key violation maps to invalid entity", err: pgError(foreignKeyViolationCode), wantIs: store.ErrInvalidEntity},
		{name: "check violation maps to invalid entity", err: pgError(checkViolationCode), wantIs: store.ErrInvalidEntity},
		{name: "not null violation maps to invalid entity", err: pgError(notNullViolationCode), wantIs: store.ErrInvalidEntity},
		{name: "unknown errors pass through", err: errors.New("connection refused"), wantSame: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mapped := MapError(tt.err)
			if tt.wantSame {
				assert.Equal(t, tt.err, mapped)
				return
			}
			assert.ErrorIs(t, mapped, tt.wantIs)
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(pgError(uniqueViolationCode)))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", pgError(uniqueViolationCode))))
	assert.False(t, IsUniqueViolation(pgError(foreignKeyViolationCode)))
	assert.False(t, IsUniqueViolation(errors.New("something else")))
	assert.False(t, IsUniqueViolation(nil))
}

// fakeSQLResult implements sql.Result for CheckRowsAffected tests.
type fakeSQLResult struct {
	rows int64
	err  error
}

func (f fakeSQLResult) LastInsertId() (int64, error) { return 0, nil }
func (f fakeSQLResult) RowsAffected() (int64, error) { return f.rows, f.err }

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	t.Run("rows affected is fine", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, CheckRowsAffected(fakeSQLResult{rows: 1}, store.ErrResultNotFound))
	})

	t.Run("zero rows returns the sentinel", func(t *testing.T) {
		t.Parallel()
		err := CheckRowsAffected(fakeSQLResult{rows: 0}, store.ErrResultNotFound)
		assert.ErrorIs(t, err, store.ErrResultNotFound)
	})

	t.Run("zero rows without a sentinel falls back to not found", func(t *testing.T) {
		t.Parallel()
		err := CheckRowsAffected(fakeSQLResult{rows: 0}, nil)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("driver errors are wrapped", func(t *testing.T) {
		t.Parallel()
		driverErr := errors.New("driver does not support RowsAffected")
		err := CheckRowsAffected(fakeSQLResult{err: driverErr}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, driverErr)
	})

	t.Run("nil result is an error", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, CheckRowsAffected(nil, nil))
	})
}
