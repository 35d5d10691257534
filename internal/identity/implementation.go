// internal/identity/implementation.go
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/time/rate"

	"vedavault/internal/authz"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrProfileNotFound    = errors.New("profile not found")
)

const uniqueViolation = "23505"

// service implements the Service interface.
type service struct {
	db          *sqlx.DB
	issuer      *TokenIssuer
	rateLimiter *rate.Limiter
}

// NewService creates a new identity service instance.
func NewService(db *sqlx.DB, issuer *TokenIssuer) Service {
	return &service{
		db:          db,
		issuer:      issuer,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/30), 30),
	}
}

// Register provisions an identity and its profile as one unit of work.
// If either insert fails the whole registration rolls back: there is no
// path where an identity exists without a matching profile.
func (s *service) Register(ctx context.Context, email, name, password string) (*Profile, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	if name == "" {
		name = DefaultName
	}

	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identityID := uuid.New()
	profileID := uuid.New()
	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO identities (id, email, password_hash, salt, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, identityID, email, passwordHash, salt, now)
	if err != nil {
		return nil, registrationError(err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (id, identity_id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, profileID, identityID, name, email, now)
	if err != nil {
		return nil, registrationError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registration: %w", err)
	}

	return &Profile{
		ID:         profileID,
		IdentityID: identityID,
		Name:       name,
		Email:      email,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func registrationError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return fmt.Errorf("register identity: %w", err)
}

// Login verifies credentials and mints a session token.
func (s *service) Login(ctx context.Context, email, password string) (string, *Profile, error) {
	if !s.rateLimiter.Allow() {
		return "", nil, ErrRateLimited
	}

	var ident Identity
	err := s.db.GetContext(ctx, &ident, `
		SELECT id, email, password_hash, salt, created_at
		FROM identities
		WHERE email = $1
	`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("query identity: %w", err)
	}

	ok, err := verifyPassword(password, ident.Salt, ident.PasswordHash)
	if err != nil || !ok {
		return "", nil, ErrInvalidCredentials
	}

	profile, err := s.profileByIdentity(ctx, ident.ID)
	if err != nil {
		return "", nil, err
	}

	token, err := s.issuer.Mint(profile.ID, profile.Email)
	if err != nil {
		return "", nil, fmt.Errorf("mint token: %w", err)
	}
	return token, profile, nil
}

// GetProfile retrieves a profile by id. Profiles are publicly readable.
func (s *service) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var profile Profile
	err := s.db.GetContext(ctx, &profile, `
		SELECT id, identity_id, name, email, address, contact, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return &profile, nil
}

// UpdateProfile applies owner-editable changes to the actor's own row.
func (s *service) UpdateProfile(ctx context.Context, actor, id uuid.UUID, upd ProfileUpdate) (*Profile, error) {
	rel := authz.Stranger
	if actor == id {
		rel = authz.Owner
	}
	if err := authz.Authorize(authz.EntityProfile, authz.OpUpdate, rel); err != nil {
		return nil, err
	}

	profile, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil && *upd.Name != "" {
		profile.Name = *upd.Name
	}
	if upd.Address != nil {
		profile.Address = *upd.Address
	}
	if upd.Contact != nil {
		profile.Contact = *upd.Contact
	}
	profile.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE profiles
		SET name = $1, address = $2, contact = $3, updated_at = $4
		WHERE id = $5
	`, profile.Name, profile.Address, profile.Contact, profile.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

func (s *service) profileByIdentity(ctx context.Context, identityID uuid.UUID) (*Profile, error) {
	var profile Profile
	err := s.db.GetContext(ctx, &profile, `
		SELECT id, identity_id, name, email, address, contact, created_at, updated_at
		FROM profiles
		WHERE identity_id = $1
	`, identityID)
	if err != nil {
		return nil, fmt.Errorf("query profile for identity: %w", err)
	}
	return &profile, nil
}
