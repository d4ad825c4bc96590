package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/examstack/grading-api/internal/dispatch"
	"github.com/examstack/grading-api/internal/store"
)

// PostgresQueueStore implements the dispatch.QueueStore interface over
// the grading_queue table, making PostgreSQL the shared backend for
// distributed mode. Claim relies on FOR UPDATE SKIP LOCKED so any number
// of worker processes can poll concurrently without handing the same
// task out twice.
type PostgresQueueStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresQueueStore creates a new PostgreSQL implementation of the
// QueueStore interface. If logger is nil, a default logger will be used.
func NewPostgresQueueStore(db store.DBTX, logger *slog.Logger) *PostgresQueueStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresQueueStore{
		db:     db,
		logger: logger.With(slog.String("component", "queue_store")),
	}
}

// Ensure PostgresQueueStore implements dispatch.QueueStore interface
var _ dispatch.QueueStore = (*PostgresQueueStore)(nil)

// Enqueue implements dispatch.QueueStore.Enqueue
func (s *PostgresQueueStore) Enqueue(ctx context.Context, task *dispatch.QueuedTask) error {
	query := `
		INSERT INTO grading_queue (id, user_id, state, payload, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.State,
		task.Payload,
		task.SubmittedAt,
	)
	if err != nil {
		s.logger.Error("failed to enqueue task", "task_id", task.ID, "error", err)
		return fmt.Errorf("failed to enqueue task: %w", MapError(err))
	}

	return nil
}

// Claim implements dispatch.QueueStore.Claim
// The subquery picks the oldest waiting row; SKIP LOCKED makes
// concurrent claimers pass over rows another worker is claiming in the
// same instant instead of blocking on them.
func (s *PostgresQueueStore) Claim(ctx context.Context, workerID string) (*dispatch.QueuedTask, error) {
	query := `
		UPDATE grading_queue
		SET state = $1, claimed_by = $2, updated_at = NOW()
		WHERE id = (
			SELECT id FROM grading_queue
			WHERE state = $3
			ORDER BY submitted_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, user_id, state, payload, result_id, error_message, submitted_at, updated_at
	`

	task, err := scanQueuedTask(s.db.QueryRowContext(ctx, query,
		dispatch.TaskProcessing, workerID, dispatch.TaskWaiting))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrTaskNotFound
		}
		s.logger.Error("failed to claim task", "worker_id", workerID, "error", err)
		return nil, fmt.Errorf("failed to claim task: %w", MapError(err))
	}

	return task, nil
}

// MarkDone implements dispatch.QueueStore.MarkDone
func (s *PostgresQueueStore) MarkDone(ctx context.Context, taskID, resultID uuid.UUID) error {
	query := `
		UPDATE grading_queue
		SET state = $1, result_id = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, dispatch.TaskDone, resultID, taskID)
	if err != nil {
		s.logger.Error("failed to mark task done", "task_id", taskID, "error", err)
		return fmt.Errorf("failed to mark task done: %w", MapError(err))
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// MarkError implements dispatch.QueueStore.MarkError
func (s *PostgresQueueStore) MarkError(ctx context.Context, taskID uuid.UUID, message string) error {
	query := `
		UPDATE grading_queue
		SET state = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, dispatch.TaskError, message, taskID)
	if err != nil {
		s.logger.Error("failed to mark task errored", "task_id", taskID, "error", err)
		return fmt.Errorf("failed to mark task errored: %w", MapError(err))
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// Get implements dispatch.QueueStore.Get
func (s *PostgresQueueStore) Get(ctx context.Context, taskID uuid.UUID) (*dispatch.QueuedTask, error) {
	query := `
		SELECT id, user_id, state, payload, result_id, error_message, submitted_at, updated_at
		FROM grading_queue
		WHERE id = $1
	`

	task, err := scanQueuedTask(s.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrTaskNotFound
		}
		s.logger.Error("failed to get queued task", "task_id", taskID, "error", err)
		return nil, fmt.Errorf("failed to get queued task: %w", MapError(err))
	}

	return task, nil
}

// CountByState implements dispatch.QueueStore.CountByState
func (s *PostgresQueueStore) CountByState(ctx context.Context) (map[dispatch.TaskState]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state, COUNT(*) FROM grading_queue GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count queued tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[dispatch.TaskState]int)
	for rows.Next() {
		var (
			state dispatch.TaskState
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan task count row: %w", err)
		}
		counts[state] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task count rows: %w", err)
	}

	return counts, nil
}

// RequeueStale implements dispatch.QueueStore.RequeueStale
func (s *PostgresQueueStore) RequeueStale(ctx context.Context, maxAge time.Duration) (int, error) {
	query := `
		UPDATE grading_queue
		SET state = $1, claimed_by = NULL, updated_at = NOW()
		WHERE state = $2 AND updated_at < $3
	`

	result, err := s.db.ExecContext(ctx, query,
		dispatch.TaskWaiting,
		dispatch.TaskProcessing,
		time.Now().UTC().Add(-maxAge),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale tasks: %w", MapError(err))
	}

	requeued, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(requeued), nil
}

// Heartbeat implements dispatch.QueueStore.Heartbeat
func (s *PostgresQueueStore) Heartbeat(ctx context.Context, workerID string) error {
	query := `
		INSERT INTO queue_workers (id, last_seen)
		VALUES ($1, NOW())
		ON CONFLICT (id) DO UPDATE SET last_seen = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, workerID); err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", MapError(err))
	}

	return nil
}

// CountWorkers implements dispatch.QueueStore.CountWorkers
func (s *PostgresQueueStore) CountWorkers(ctx context.Context, within time.Duration) (int, error) {
	query := `SELECT COUNT(*) FROM queue_workers WHERE last_seen >= $1`

	var count int
	err := s.db.QueryRowContext(ctx, query, time.Now().UTC().Add(-within)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count live workers: %w", MapError(err))
	}

	return count, nil
}

func scanQueuedTask(row rowScanner) (*dispatch.QueuedTask, error) {
	var (
		task         dispatch.QueuedTask
		resultID     uuid.NullUUID
		errorMessage sql.NullString
	)

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.State,
		&task.Payload,
		&resultID,
		&errorMessage,
		&task.SubmittedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if resultID.Valid {
		task.ResultID = &resultID.UUID
	}
	task.ErrorMessage = errorMessage.String

	return &task, nil
}
