package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// notifyChannel is the single Postgres NOTIFY channel all progress
// events travel over; the task identifier rides inside the payload.
const notifyChannel = "grading_progress"

// envelope wraps a ProgressEvent with its logical channel for transport
// over the shared NOTIFY channel.
type envelope struct {
	Channel string        `json:"channel"`
	Event   ProgressEvent `json:"event"`
}

// PGPublisher publishes progress events through Postgres NOTIFY so
// workers in separate processes can reach subscribers attached to the
// API process. Publishing is fire-and-forget: a failed NOTIFY is logged
// and dropped, never surfaced to the grading path.
type PGPublisher struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPGPublisher creates a publisher over the given database handle.
func NewPGPublisher(db *sql.DB, logger *slog.Logger) *PGPublisher {
	return &PGPublisher{
		db:     db,
		logger: logger.With("component", "pg_publisher"),
	}
}

// Publish implements Publisher.
func (p *PGPublisher) Publish(ctx context.Context, channel string, event ProgressEvent) {
	payload, err := json.Marshal(envelope{Channel: channel, Event: event})
	if err != nil {
		p.logger.Error("failed to marshal progress event", "error", err)
		return
	}

	if _, err := p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", notifyChannel, string(payload)); err != nil {
		p.logger.Warn("failed to publish progress event",
			"channel", channel, "status", event.Status, "error", err)
	}
}

// PGListener consumes the NOTIFY stream on a dedicated connection and
// fans events out through a local MemoryBroker, giving the API process
// one Subscriber implementation for both modes.
type PGListener struct {
	connString string
	broker     *MemoryBroker
	logger     *slog.Logger
}

// NewPGListener creates a listener that will connect with connString.
func NewPGListener(connString string, broker *MemoryBroker, logger *slog.Logger) *PGListener {
	return &PGListener{
		connString: connString,
		broker:     broker,
		logger:     logger.With("component", "pg_listener"),
	}
}

// Run listens until the context is cancelled, reconnecting after
// connection failures. Notifications lost while reconnecting are
// tolerated; clients fall back to status polling.
func (l *PGListener) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if err := l.listen(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn("progress listener disconnected, reconnecting", "error", err)
		}
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(context.Background()) }()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var env envelope
		if err := json.Unmarshal([]byte(notification.Payload), &env); err != nil {
			l.logger.Warn("discarding malformed progress notification", "error", err)
			continue
		}
		l.broker.Publish(ctx, env.Channel, env.Event)
	}
}
