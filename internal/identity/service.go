// internal/identity/service.go
package identity

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for identity provisioning and profiles.
type Service interface {
	Register(ctx context.Context, email, name, password string) (*Profile, error)
	Login(ctx context.Context, email, password string) (string, *Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, actor, id uuid.UUID, upd ProfileUpdate) (*Profile, error)
}
