// internal/catalog/domain.go
package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Status is a book's availability. It is never written directly by a
// client: it is derived from the lending workflow's transitions.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBorrowed  Status = "borrowed"
	StatusReserved  Status = "reserved"
)

// Book is a lendable item listed by its owner.
type Book struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	OwnerID   uuid.UUID      `json:"owner_id" db:"owner_id"`
	Title     string         `json:"title" db:"title"`
	Author    string         `json:"author" db:"author"`
	Genre     string         `json:"genre,omitempty" db:"genre"`
	ISBN      string         `json:"isbn,omitempty" db:"isbn"`
	Tags      pq.StringArray `json:"tags" db:"tags"`
	Status    Status         `json:"status" db:"status"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// NewBook carries the owner-supplied listing fields.
type NewBook struct {
	Title  string   `json:"title"`
	Author string   `json:"author"`
	Genre  string   `json:"genre,omitempty"`
	ISBN   string   `json:"isbn,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}
