// internal/changefeed/changefeed.go
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Channel is the Postgres NOTIFY channel carrying book change signals.
const Channel = "book_changes"

// Kind classifies a book mutation.
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

// Event is an invalidation signal. It intentionally carries no book
// payload beyond the id: subscribers must re-query the authoritative
// rows, never patch a local copy.
type Event struct {
	ID        int64     `json:"id" db:"id"`
	BookID    uuid.UUID `json:"book_id" db:"book_id"`
	Kind      Kind      `json:"kind" db:"kind"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Recorder appends change events inside the caller's transaction, so a
// signal is only ever emitted for a mutation that actually committed.
type Recorder struct {
	tracer trace.Tracer
}

func NewRecorder() *Recorder {
	return &Recorder{
		tracer: otel.Tracer("vedavault/changefeed"),
	}
}

// Record inserts a book_events row and queues a NOTIFY on the same
// transaction. Postgres delivers the notification on commit and drops
// it on rollback, which keeps the feed exactly as consistent as the
// mutation it describes.
func (rec *Recorder) Record(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, kind Kind) error {
	ctx, span := rec.tracer.Start(ctx, "changefeed.record",
		trace.WithAttributes(
			attribute.String("book.id", bookID.String()),
			attribute.String("event.kind", string(kind)),
		),
	)
	defer span.End()

	var eventID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO book_events (book_id, kind, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, bookID, kind, time.Now().UTC()).Scan(&eventID)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}

	payload, err := json.Marshal(Event{ID: eventID, BookID: bookID, Kind: kind})
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, Channel, string(payload)); err != nil {
		return fmt.Errorf("notify change event: %w", err)
	}

	span.SetAttributes(attribute.Int64("event.id", eventID))
	return nil
}

// Recent returns the latest events, newest first. It exists so a client
// that missed notifications while disconnected can detect that the feed
// moved on and re-query.
func Recent(ctx context.Context, db *sqlx.DB, limit int) ([]Event, error) {
	var events []Event
	err := db.SelectContext(ctx, &events, `
		SELECT id, book_id, kind, created_at
		FROM book_events
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query change events: %w", err)
	}
	return events, nil
}
