// internal/identity/domain.go
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Identity is an authentication record. It never leaves this package;
// the rest of the system only ever sees Profiles.
type Identity struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Salt         string    `json:"-" db:"salt"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Profile is the application-level record paired one-to-one with an
// Identity. It is created in the same database transaction as the
// identity row, so no identity can exist without one.
type Profile struct {
	ID         uuid.UUID `json:"id" db:"id"`
	IdentityID uuid.UUID `json:"-" db:"identity_id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	Address    string    `json:"address,omitempty" db:"address"`
	Contact    string    `json:"contact,omitempty" db:"contact"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultName is used when registration metadata carries no name.
const DefaultName = "User"

// ProfileUpdate carries the owner-editable profile fields. Nil means
// leave unchanged.
type ProfileUpdate struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
	Contact *string `json:"contact,omitempty"`
}
