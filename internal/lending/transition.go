// internal/lending/transition.go
package lending

import (
	"errors"
	"time"

	"vedavault/internal/authz"
	"vedavault/internal/catalog"
)

var ErrIllegalTransition = errors.New("illegal status transition")

// LoanPeriod is how long an approved loan runs before it is due.
const LoanPeriod = 14 * 24 * time.Hour

// Status of a lending transaction. pending may move to approved or
// rejected, approved may move to completed; rejected and completed are
// terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Effect describes the side effects a legal transition must apply in
// the same unit of work as the status write.
type Effect struct {
	// BookStatus, when non-empty, is the status the referenced book
	// must be moved to. BookExpect is the status the book must still
	// hold for the move to be valid; the store applies it as a
	// compare-and-swap so racing writers cannot both succeed.
	BookStatus catalog.Status
	BookExpect catalog.Status

	SetLendDates  bool // lend_date = now, due_date = now + LoanPeriod
	SetReturnDate bool
}

var transitions = map[Status]map[Status]Effect{
	StatusPending: {
		StatusApproved: {
			BookStatus:   catalog.StatusBorrowed,
			BookExpect:   catalog.StatusAvailable,
			SetLendDates: true,
		},
		StatusRejected: {},
	},
	StatusApproved: {
		StatusCompleted: {
			BookStatus:    catalog.StatusAvailable,
			BookExpect:    catalog.StatusBorrowed,
			SetReturnDate: true,
		},
	},
}

// Transition validates a requested status change and returns the side
// effects it carries. Every transition out of pending or approved is
// the book owner's to drive; rel is the requester's relationship to
// the transaction as resolved by the caller.
func Transition(from, to Status, rel authz.Relationship) (Effect, error) {
	if err := authz.Authorize(authz.EntityTransaction, authz.OpUpdate, rel); err != nil {
		return Effect{}, err
	}
	effect, ok := transitions[from][to]
	if !ok {
		return Effect{}, ErrIllegalTransition
	}
	return effect, nil
}
