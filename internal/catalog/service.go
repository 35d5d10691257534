// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the book catalog.
type Service interface {
	CreateBook(ctx context.Context, owner uuid.UUID, in NewBook) (*Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	ListBooks(ctx context.Context, filter string) ([]*Book, error)
	ListOwnerBooks(ctx context.Context, owner uuid.UUID) ([]*Book, error)
	DeleteBook(ctx context.Context, actor, id uuid.UUID) error
}
