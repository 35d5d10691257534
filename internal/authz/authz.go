// internal/authz/authz.go
package authz

import "errors"

// ErrDenied is returned for every failed predicate. It is deliberately
// generic: callers must surface it identically whether the target row
// exists or not.
var ErrDenied = errors.New("access denied")

// Entity names a protected table.
type Entity string

const (
	EntityProfile     Entity = "profile"
	EntityBook        Entity = "book"
	EntityTransaction Entity = "transaction"
	EntityReview      Entity = "review"
	EntityPayment     Entity = "payment"
)

// Operation names a data-access verb.
type Operation string

const (
	OpRead   Operation = "read"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Relationship is the requester's role relative to the target row,
// resolved by the calling service from the rows involved.
type Relationship string

const (
	// Anyone matches every requester, authenticated or not.
	Anyone Relationship = "anyone"
	// Owner is the identity that owns the row: the profile itself, a
	// book's owner, a review's author, or the owner of the book behind
	// a transaction or payment.
	Owner Relationship = "owner"
	// Borrower is the borrower referenced by a transaction or payment.
	Borrower Relationship = "borrower"
	// Stranger has no relationship to the row.
	Stranger Relationship = "stranger"
)

// rules is the complete predicate set, keyed by (entity, operation).
// It is evaluated at the access boundary on every request; nothing is
// cached and no call site carries its own ad hoc checks.
var rules = map[Entity]map[Operation][]Relationship{
	EntityProfile: {
		OpRead:   {Anyone},
		OpInsert: {Owner},
		OpUpdate: {Owner},
	},
	EntityBook: {
		OpRead:   {Anyone},
		OpInsert: {Owner},
		OpUpdate: {Owner},
		OpDelete: {Owner},
	},
	EntityTransaction: {
		OpRead:   {Borrower, Owner},
		OpInsert: {Borrower},
		OpUpdate: {Owner},
	},
	EntityReview: {
		OpRead:   {Anyone},
		OpInsert: {Owner},
		OpUpdate: {Owner},
		OpDelete: {Owner},
	},
	EntityPayment: {
		OpRead:   {Borrower, Owner},
		OpInsert: {Borrower},
	},
}

// Authorize checks rel against the predicate table and returns ErrDenied
// unless the rule for (entity, op) admits it. Operations with no rule at
// all are denied.
func Authorize(entity Entity, op Operation, rel Relationship) error {
	allowed, ok := rules[entity][op]
	if !ok {
		return ErrDenied
	}
	for _, a := range allowed {
		if a == Anyone || a == rel {
			return nil
		}
	}
	return ErrDenied
}
