// internal/review/domain.go
package review

import (
	"time"

	"github.com/google/uuid"
)

// Review is a rating and comment attached to a book by any profile.
type Review struct {
	ID         uuid.UUID `json:"id" db:"id"`
	BookID     uuid.UUID `json:"book_id" db:"book_id"`
	ReviewerID uuid.UUID `json:"reviewer_id" db:"reviewer_id"`
	Rating     int       `json:"rating" db:"rating"`
	Comment    string    `json:"comment,omitempty" db:"comment"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
