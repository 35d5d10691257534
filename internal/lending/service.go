// internal/lending/service.go
package lending

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the lending workflow.
type Service interface {
	RequestBorrow(ctx context.Context, actor, bookID uuid.UUID) (*Transaction, error)
	UpdateStatus(ctx context.Context, actor, id uuid.UUID, to Status) (*Transaction, error)
	GetTransaction(ctx context.Context, actor, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, actor uuid.UUID) ([]*Transaction, error)
	RecordPayment(ctx context.Context, actor, transactionID uuid.UUID, amount float64) (*Payment, error)
	ListPayments(ctx context.Context, actor, transactionID uuid.UUID) ([]*Payment, error)
}
