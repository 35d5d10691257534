// internal/lending/domain.go
package lending

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies a transaction. Only borrow transactions are ever
// created through the API; the return leg is the completed status of
// the same row.
type Type string

const (
	TypeBorrow Type = "borrow"
	TypeReturn Type = "return"
)

// Transaction is one lending episode against a book.
type Transaction struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	BookID      uuid.UUID  `json:"book_id" db:"book_id"`
	BorrowerID  uuid.UUID  `json:"borrower_id" db:"borrower_id"`
	LendDate    *time.Time `json:"lend_date,omitempty" db:"lend_date"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	ReturnDate  *time.Time `json:"return_date,omitempty" db:"return_date"`
	Type        Type       `json:"type" db:"type"`
	Status      Status     `json:"status" db:"status"`
	PickupToken string     `json:"pickup_token,omitempty" db:"pickup_token"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Payment records a monetary amount against a transaction.
type Payment struct {
	ID            uuid.UUID `json:"id" db:"id"`
	TransactionID uuid.UUID `json:"transaction_id" db:"transaction_id"`
	Amount        float64   `json:"amount" db:"amount"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
