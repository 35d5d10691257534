// internal/identity/implementation_test.go
package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vedavault/internal/authz"
	"vedavault/internal/identity"
	"vedavault/internal/testdb"
)

func newService(t *testing.T) (identity.Service, *testFixture) {
	t.Helper()
	db := testdb.Setup(t)
	issuer := identity.NewTokenIssuer([]byte("test-secret"), time.Hour)
	return identity.NewService(db, issuer), &testFixture{db: db, issuer: issuer}
}

type testFixture struct {
	db     *sqlx.DB
	issuer *identity.TokenIssuer
}

func TestRegisterProvisionsProfile(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()

	profile, err := svc.Register(ctx, "ved@example.com", "Ved", "SecurePass123!")
	require.NoError(t, err)
	assert.Equal(t, "Ved", profile.Name)
	assert.Equal(t, "ved@example.com", profile.Email)

	// Exactly one profile per identity, email copied over.
	var identities, profiles int
	require.NoError(t, f.db.Get(&identities, `SELECT COUNT(*) FROM identities`))
	require.NoError(t, f.db.Get(&profiles, `SELECT COUNT(*) FROM profiles WHERE identity_id IN (SELECT id FROM identities)`))
	assert.Equal(t, 1, identities)
	assert.Equal(t, 1, profiles)
}

func TestRegisterDefaultsName(t *testing.T) {
	svc, _ := newService(t)

	profile, err := svc.Register(context.Background(), "anon@example.com", "", "SecurePass123!")
	require.NoError(t, err)
	assert.Equal(t, identity.DefaultName, profile.Name)
}

func TestRegisterDuplicateEmailIsAtomic(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "dup@example.com", "First", "SecurePass123!")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "dup@example.com", "Second", "SecurePass123!")
	assert.ErrorIs(t, err, identity.ErrEmailTaken)

	// The failed attempt must not leave an orphan identity behind.
	var orphans int
	require.NoError(t, f.db.Get(&orphans, `
		SELECT COUNT(*) FROM identities i
		WHERE NOT EXISTS (SELECT 1 FROM profiles p WHERE p.identity_id = i.id)
	`))
	assert.Zero(t, orphans)
}

func TestLogin(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "login@example.com", "Reader", "SecurePass123!")
	require.NoError(t, err)

	token, profile, err := svc.Login(ctx, "login@example.com", "SecurePass123!")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, profile.ID)

	actor, err := f.issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, actor)

	_, _, err = svc.Login(ctx, "login@example.com", "wrong")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "SecurePass123!")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestUpdateProfileOwnerOnly(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	alice, err := svc.Register(ctx, "alice@example.com", "Alice", "SecurePass123!")
	require.NoError(t, err)
	bob, err := svc.Register(ctx, "bob@example.com", "Bob", "SecurePass123!")
	require.NoError(t, err)

	address := "42 Shelf Lane"
	updated, err := svc.UpdateProfile(ctx, alice.ID, alice.ID, identity.ProfileUpdate{Address: &address})
	require.NoError(t, err)
	assert.Equal(t, address, updated.Address)

	_, err = svc.UpdateProfile(ctx, bob.ID, alice.ID, identity.ProfileUpdate{Address: &address})
	assert.ErrorIs(t, err, authz.ErrDenied)
}
