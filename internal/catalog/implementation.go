// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vedavault/internal/authz"
	"vedavault/internal/changefeed"
)

var ErrBookNotFound = errors.New("book not found")

// service implements the Service interface.
type service struct {
	db       *sqlx.DB
	recorder *changefeed.Recorder
	tracer   trace.Tracer
}

// NewService creates a new catalog service instance.
func NewService(db *sqlx.DB, recorder *changefeed.Recorder) Service {
	return &service{
		db:       db,
		recorder: recorder,
		tracer:   otel.Tracer("vedavault/catalog"),
	}
}

// CreateBook lists a new book, owned by the actor. The insert and its
// change-feed event commit together.
func (s *service) CreateBook(ctx context.Context, owner uuid.UUID, in NewBook) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.create_book",
		trace.WithAttributes(attribute.String("owner.id", owner.String())),
	)
	defer span.End()

	if err := authz.Authorize(authz.EntityBook, authz.OpInsert, authz.Owner); err != nil {
		return nil, err
	}
	if in.Title == "" || in.Author == "" {
		return nil, fmt.Errorf("title and author are required")
	}

	book := &Book{
		ID:        uuid.New(),
		OwnerID:   owner,
		Title:     in.Title,
		Author:    in.Author,
		Genre:     in.Genre,
		ISBN:      in.ISBN,
		Tags:      pq.StringArray(in.Tags),
		Status:    StatusAvailable,
		CreatedAt: time.Now().UTC(),
	}
	book.UpdatedAt = book.CreatedAt
	if book.Tags == nil {
		book.Tags = pq.StringArray{}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO books (id, owner_id, title, author, genre, isbn, tags, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`, book.ID, book.OwnerID, book.Title, book.Author, book.Genre, book.ISBN, book.Tags, book.Status, book.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}

	if err := s.recorder.Record(ctx, tx, book.ID, changefeed.KindCreated); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit book: %w", err)
	}
	return book, nil
}

// GetBook retrieves a book by id. Books are publicly readable.
func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	var book Book
	err := s.db.GetContext(ctx, &book, `
		SELECT id, owner_id, title, author, genre, isbn, tags, status, created_at, updated_at
		FROM books
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("query book: %w", err)
	}
	return &book, nil
}

// ListBooks returns all listings, optionally narrowed by a free-text
// match against title, author, genre and tags.
func (s *service) ListBooks(ctx context.Context, filter string) ([]*Book, error) {
	var books []*Book
	err := s.db.SelectContext(ctx, &books, `
		SELECT id, owner_id, title, author, genre, isbn, tags, status, created_at, updated_at
		FROM books
		WHERE $1 = ''
		   OR title ILIKE '%' || $1 || '%'
		   OR author ILIKE '%' || $1 || '%'
		   OR genre ILIKE '%' || $1 || '%'
		   OR EXISTS (SELECT 1 FROM unnest(tags) tag WHERE tag ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
	`, filter)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	return books, nil
}

// ListOwnerBooks returns the books listed by one profile.
func (s *service) ListOwnerBooks(ctx context.Context, owner uuid.UUID) ([]*Book, error) {
	var books []*Book
	err := s.db.SelectContext(ctx, &books, `
		SELECT id, owner_id, title, author, genre, isbn, tags, status, created_at, updated_at
		FROM books
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("query owner books: %w", err)
	}
	return books, nil
}

// DeleteBook removes a listing. Only the owner may delete it; the
// database cascades to the book's transactions and reviews. A delete of
// a missing book and a delete by a non-owner fail identically.
func (s *service) DeleteBook(ctx context.Context, actor, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "catalog.delete_book",
		trace.WithAttributes(attribute.String("book.id", id.String())),
	)
	defer span.End()

	book, err := s.GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			return authz.ErrDenied
		}
		return err
	}

	rel := authz.Stranger
	if book.OwnerID == actor {
		rel = authz.Owner
	}
	if err := authz.Authorize(authz.EntityBook, authz.OpDelete, rel); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if err := s.recorder.Record(ctx, tx, id, changefeed.KindDeleted); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}
