// internal/testdb/testdb.go
package testdb

import (
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Schema mirrors schema.sql at the repository root. The CHECK and
// UNIQUE constraints are part of the lifecycle contract, so tests run
// against the real thing rather than a trimmed copy.
const Schema = `
CREATE TABLE IF NOT EXISTS identities (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	salt TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS profiles (
	id UUID PRIMARY KEY,
	identity_id UUID NOT NULL UNIQUE REFERENCES identities(id) ON DELETE CASCADE,
	name TEXT NOT NULL DEFAULT 'User',
	email TEXT NOT NULL UNIQUE,
	address TEXT NOT NULL DEFAULT '',
	contact TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS books (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	genre TEXT NOT NULL DEFAULT '',
	isbn TEXT NOT NULL DEFAULT '',
	tags TEXT[] NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'borrowed', 'reserved')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	book_id UUID NOT NULL REFERENCES books(id) ON DELETE CASCADE,
	borrower_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	lend_date TIMESTAMPTZ,
	due_date TIMESTAMPTZ,
	return_date TIMESTAMPTZ,
	type TEXT NOT NULL DEFAULT 'borrow' CHECK (type IN ('borrow', 'return')),
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected', 'completed')),
	pickup_token TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS reviews (
	id UUID PRIMARY KEY,
	book_id UUID NOT NULL REFERENCES books(id) ON DELETE CASCADE,
	reviewer_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comment TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS payments (
	id UUID PRIMARY KEY,
	transaction_id UUID NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
	amount NUMERIC(10,2) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS book_events (
	id BIGSERIAL PRIMARY KEY,
	book_id UUID NOT NULL,
	kind TEXT NOT NULL CHECK (kind IN ('created', 'updated', 'deleted')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Setup connects to the Postgres instance named by the PG* environment
// variables, creates the schema and truncates all tables. Tests are
// skipped when no database is reachable.
func Setup(t testing.TB) *sqlx.DB {
	t.Helper()

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		envOr("PGHOST", "localhost"),
		envOr("PGPORT", "5432"),
		envOr("PGUSER", "vedavault"),
		envOr("PGPASSWORD", "vedavault"),
		envOr("PGDATABASE", "vedavault_test"),
	)

	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE TABLE identities, profiles, books, transactions, reviews, payments, book_events CASCADE`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SeedProfile inserts an identity/profile pair directly, bypassing the
// registration path, and returns the profile id.
func SeedProfile(t testing.TB, db *sqlx.DB, email string) uuid.UUID {
	t.Helper()

	identityID := uuid.New()
	profileID := uuid.New()

	if _, err := db.Exec(`
		INSERT INTO identities (id, email, password_hash, salt)
		VALUES ($1, $2, 'x', 'x')
	`, identityID, email); err != nil {
		t.Fatalf("failed to seed identity: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO profiles (id, identity_id, name, email)
		VALUES ($1, $2, 'User', $3)
	`, profileID, identityID, email); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}
	return profileID
}
