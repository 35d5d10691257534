// internal/review/service.go
package review

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for book reviews.
type Service interface {
	AddReview(ctx context.Context, actor, bookID uuid.UUID, rating int, comment string) (*Review, error)
	UpdateReview(ctx context.Context, actor, id uuid.UUID, rating int, comment string) (*Review, error)
	DeleteReview(ctx context.Context, actor, id uuid.UUID) error
	ListBookReviews(ctx context.Context, bookID uuid.UUID) ([]*Review, error)
}
