// internal/review/implementation.go
package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"vedavault/internal/authz"
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// service implements the Service interface.
type service struct {
	db *sqlx.DB
}

// NewService creates a new review service instance.
func NewService(db *sqlx.DB) Service {
	return &service{db: db}
}

// AddReview attaches the actor's rating and comment to a book.
func (s *service) AddReview(ctx context.Context, actor, bookID uuid.UUID, rating int, comment string) (*Review, error) {
	if err := authz.Authorize(authz.EntityReview, authz.OpInsert, authz.Owner); err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	now := time.Now().UTC()
	r := &Review{
		ID:         uuid.New(),
		BookID:     bookID,
		ReviewerID: actor,
		Rating:     rating,
		Comment:    comment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, book_id, reviewer_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, r.ID, r.BookID, r.ReviewerID, r.Rating, r.Comment, now)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return r, nil
}

// UpdateReview rewrites the actor's own review.
func (s *service) UpdateReview(ctx context.Context, actor, id uuid.UUID, rating int, comment string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	r, err := s.authorizedReview(ctx, actor, id, authz.OpUpdate)
	if err != nil {
		return nil, err
	}

	r.Rating = rating
	r.Comment = comment
	r.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE reviews
		SET rating = $1, comment = $2, updated_at = $3
		WHERE id = $4
	`, r.Rating, r.Comment, r.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	return r, nil
}

// DeleteReview removes the actor's own review.
func (s *service) DeleteReview(ctx context.Context, actor, id uuid.UUID) error {
	if _, err := s.authorizedReview(ctx, actor, id, authz.OpDelete); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

// ListBookReviews returns all reviews for a book, newest first.
func (s *service) ListBookReviews(ctx context.Context, bookID uuid.UUID) ([]*Review, error) {
	var reviews []*Review
	err := s.db.SelectContext(ctx, &reviews, `
		SELECT id, book_id, reviewer_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE book_id = $1
		ORDER BY created_at DESC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	return reviews, nil
}

// authorizedReview loads a review and checks the actor's authorship.
// Absence and denial are indistinguishable to the caller.
func (s *service) authorizedReview(ctx context.Context, actor, id uuid.UUID, op authz.Operation) (*Review, error) {
	var r Review
	err := s.db.GetContext(ctx, &r, `
		SELECT id, book_id, reviewer_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authz.ErrDenied
		}
		return nil, fmt.Errorf("query review: %w", err)
	}

	rel := authz.Stranger
	if r.ReviewerID == actor {
		rel = authz.Owner
	}
	if err := authz.Authorize(authz.EntityReview, op, rel); err != nil {
		return nil, err
	}
	return &r, nil
}
