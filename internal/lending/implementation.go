// internal/lending/implementation.go
package lending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"vedavault/internal/authz"
	"vedavault/internal/catalog"
	"vedavault/internal/changefeed"
)

var (
	ErrBookUnavailable = errors.New("book is not available")
	ErrBookConflict    = errors.New("book status changed, transition aborted")
)

// service implements the Service interface.
type service struct {
	db          *sqlx.DB
	recorder    *changefeed.Recorder
	tracer      trace.Tracer
	transitions metric.Int64Counter
	now         func() time.Time
}

// NewService creates a new lending service instance.
func NewService(db *sqlx.DB, recorder *changefeed.Recorder) Service {
	meter := otel.Meter("vedavault/lending")
	counter, _ := meter.Int64Counter("lending.transitions",
		metric.WithDescription("Completed lending status transitions"),
	)
	return &service{
		db:          db,
		recorder:    recorder,
		tracer:      otel.Tracer("vedavault/lending"),
		transitions: counter,
		now:         time.Now,
	}
}

// txRow joins a transaction with its book's owner so the caller's
// relationship can be resolved in one query.
type txRow struct {
	Transaction
	OwnerID uuid.UUID `db:"owner_id"`
}

func relationship(actor, owner, borrower uuid.UUID) authz.Relationship {
	switch actor {
	case owner:
		return authz.Owner
	case borrower:
		return authz.Borrower
	}
	return authz.Stranger
}

// RequestBorrow creates a pending borrow transaction for the actor.
// The target book must currently be available; the eventual approval
// re-validates that with a compare-and-swap, so this check only exists
// to fail obviously doomed requests up front.
func (s *service) RequestBorrow(ctx context.Context, actor, bookID uuid.UUID) (*Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "lending.request_borrow",
		trace.WithAttributes(
			attribute.String("book.id", bookID.String()),
			attribute.String("borrower.id", actor.String()),
		),
	)
	defer span.End()

	// The borrower reference is the authenticated actor itself.
	if err := authz.Authorize(authz.EntityTransaction, authz.OpInsert, authz.Borrower); err != nil {
		return nil, err
	}

	var status catalog.Status
	err := s.db.GetContext(ctx, &status, `SELECT status FROM books WHERE id = $1`, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrBookNotFound
		}
		return nil, fmt.Errorf("query book: %w", err)
	}
	if status != catalog.StatusAvailable {
		return nil, ErrBookUnavailable
	}

	now := s.now().UTC()
	t := &Transaction{
		ID:          uuid.New(),
		BookID:      bookID,
		BorrowerID:  actor,
		Type:        TypeBorrow,
		Status:      StatusPending,
		PickupToken: uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, book_id, borrower_id, type, status, pickup_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, t.ID, t.BookID, t.BorrowerID, t.Type, t.Status, t.PickupToken, now)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

// UpdateStatus drives a transaction along the transition table. The
// status write, its timestamps and the book status change commit as
// one database transaction; any failure leaves every row untouched.
func (s *service) UpdateStatus(ctx context.Context, actor, id uuid.UUID, to Status) (*Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "lending.update_status",
		trace.WithAttributes(
			attribute.String("transaction.id", id.String()),
			attribute.String("status.to", string(to)),
		),
	)
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	row, err := lockTransaction(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	rel := relationship(actor, row.OwnerID, row.BorrowerID)
	if rel == authz.Stranger {
		// Strangers may not even learn the row exists.
		return nil, authz.ErrDenied
	}

	effect, err := Transition(row.Status, to, rel)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updated := row.Transaction
	updated.Status = to
	updated.UpdatedAt = now
	if effect.SetLendDates {
		lend := now
		due := now.Add(LoanPeriod)
		updated.LendDate = &lend
		updated.DueDate = &due
	}
	if effect.SetReturnDate {
		ret := now
		updated.ReturnDate = &ret
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, lend_date = $2, due_date = $3, return_date = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`, updated.Status, updated.LendDate, updated.DueDate, updated.ReturnDate, now, id, row.Status)
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	if effect.BookStatus != "" {
		res, err := tx.ExecContext(ctx, `
			UPDATE books
			SET status = $1, updated_at = $2
			WHERE id = $3 AND status = $4
		`, effect.BookStatus, now, row.BookID, effect.BookExpect)
		if err != nil {
			return nil, fmt.Errorf("update book status: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("update book status: %w", err)
		}
		if affected == 0 {
			// A competing transaction already moved the book.
			return nil, ErrBookConflict
		}

		if err := s.recorder.Record(ctx, tx, row.BookID, changefeed.KindUpdated); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(row.Status)),
		attribute.String("to", string(to)),
	))
	return &updated, nil
}

// lockTransaction loads a transaction plus its book's owner and takes a
// row lock so competing transitions on the same row serialize.
func lockTransaction(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*txRow, error) {
	var row txRow
	err := tx.GetContext(ctx, &row, `
		SELECT t.id, t.book_id, t.borrower_id, t.lend_date, t.due_date, t.return_date,
		       t.type, t.status, t.pickup_token, t.created_at, t.updated_at, b.owner_id
		FROM transactions t
		JOIN books b ON b.id = t.book_id
		WHERE t.id = $1
		FOR UPDATE OF t
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authz.ErrDenied
		}
		return nil, fmt.Errorf("query transaction: %w", err)
	}
	return &row, nil
}

// GetTransaction returns a transaction visible to the actor. Absence
// and denial are indistinguishable.
func (s *service) GetTransaction(ctx context.Context, actor, id uuid.UUID) (*Transaction, error) {
	row, err := s.loadTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	rel := relationship(actor, row.OwnerID, row.BorrowerID)
	if err := authz.Authorize(authz.EntityTransaction, authz.OpRead, rel); err != nil {
		return nil, err
	}
	return &row.Transaction, nil
}

// ListTransactions returns every transaction the actor may see: those
// they borrowed and those against their own books.
func (s *service) ListTransactions(ctx context.Context, actor uuid.UUID) ([]*Transaction, error) {
	var rows []*Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT t.id, t.book_id, t.borrower_id, t.lend_date, t.due_date, t.return_date,
		       t.type, t.status, t.pickup_token, t.created_at, t.updated_at
		FROM transactions t
		JOIN books b ON b.id = t.book_id
		WHERE t.borrower_id = $1 OR b.owner_id = $1
		ORDER BY t.created_at DESC
	`, actor)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return rows, nil
}

// RecordPayment records an amount against a transaction the actor
// borrowed.
func (s *service) RecordPayment(ctx context.Context, actor, transactionID uuid.UUID, amount float64) (*Payment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}

	row, err := s.loadTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	rel := relationship(actor, row.OwnerID, row.BorrowerID)
	if err := authz.Authorize(authz.EntityPayment, authz.OpInsert, rel); err != nil {
		return nil, err
	}

	p := &Payment{
		ID:            uuid.New(),
		TransactionID: transactionID,
		Amount:        amount,
		CreatedAt:     s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payments (id, transaction_id, amount, created_at)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.TransactionID, p.Amount, p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return p, nil
}

// ListPayments returns the payments on a transaction, visible only to
// its borrower and the book's owner.
func (s *service) ListPayments(ctx context.Context, actor, transactionID uuid.UUID) ([]*Payment, error) {
	row, err := s.loadTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	rel := relationship(actor, row.OwnerID, row.BorrowerID)
	if err := authz.Authorize(authz.EntityPayment, authz.OpRead, rel); err != nil {
		return nil, err
	}

	var payments []*Payment
	err = s.db.SelectContext(ctx, &payments, `
		SELECT id, transaction_id, amount, created_at
		FROM payments
		WHERE transaction_id = $1
		ORDER BY created_at ASC
	`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	return payments, nil
}

func (s *service) loadTransaction(ctx context.Context, id uuid.UUID) (*txRow, error) {
	var row txRow
	err := s.db.GetContext(ctx, &row, `
		SELECT t.id, t.book_id, t.borrower_id, t.lend_date, t.due_date, t.return_date,
		       t.type, t.status, t.pickup_token, t.created_at, t.updated_at, b.owner_id
		FROM transactions t
		JOIN books b ON b.id = t.book_id
		WHERE t.id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authz.ErrDenied
		}
		return nil, fmt.Errorf("query transaction: %w", err)
	}
	return &row, nil
}
