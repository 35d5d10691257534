// internal/catalog/implementation_test.go
package catalog_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vedavault/internal/authz"
	"vedavault/internal/catalog"
	"vedavault/internal/changefeed"
	"vedavault/internal/testdb"
)

func TestCreateAndGetBook(t *testing.T) {
	db := testdb.Setup(t)
	svc := catalog.NewService(db, changefeed.NewRecorder())
	owner := testdb.SeedProfile(t, db, "owner@example.com")
	ctx := context.Background()

	book, err := svc.CreateBook(ctx, owner, catalog.NewBook{
		Title:  "The Dispossessed",
		Author: "Ursula K. Le Guin",
		Genre:  "science fiction",
		ISBN:   "9780061054884",
		Tags:   []string{"utopia", "classic"},
	})
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusAvailable, book.Status)
	assert.Equal(t, owner, book.OwnerID)

	got, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Title, got.Title)
	assert.ElementsMatch(t, []string{"utopia", "classic"}, []string(got.Tags))

	_, err = svc.GetBook(ctx, uuid.New())
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)

	_, err = svc.CreateBook(ctx, owner, catalog.NewBook{Title: "No Author"})
	assert.Error(t, err)
}

func TestListBooksFilter(t *testing.T) {
	db := testdb.Setup(t)
	svc := catalog.NewService(db, changefeed.NewRecorder())
	owner := testdb.SeedProfile(t, db, "owner@example.com")
	ctx := context.Background()

	_, err := svc.CreateBook(ctx, owner, catalog.NewBook{Title: "Dune", Author: "Frank Herbert", Tags: []string{"desert"}})
	require.NoError(t, err)
	_, err = svc.CreateBook(ctx, owner, catalog.NewBook{Title: "Emma", Author: "Jane Austen", Genre: "romance"})
	require.NoError(t, err)

	all, err := svc.ListBooks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byTitle, err := svc.ListBooks(ctx, "dune")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Dune", byTitle[0].Title)

	byAuthor, err := svc.ListBooks(ctx, "austen")
	require.NoError(t, err)
	assert.Len(t, byAuthor, 1)

	byGenre, err := svc.ListBooks(ctx, "romance")
	require.NoError(t, err)
	assert.Len(t, byGenre, 1)

	byTag, err := svc.ListBooks(ctx, "desert")
	require.NoError(t, err)
	assert.Len(t, byTag, 1)

	none, err := svc.ListBooks(ctx, "cookbook")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListOwnerBooks(t *testing.T) {
	db := testdb.Setup(t)
	svc := catalog.NewService(db, changefeed.NewRecorder())
	alice := testdb.SeedProfile(t, db, "alice@example.com")
	bob := testdb.SeedProfile(t, db, "bob@example.com")
	ctx := context.Background()

	_, err := svc.CreateBook(ctx, alice, catalog.NewBook{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	mine, err := svc.ListOwnerBooks(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := svc.ListOwnerBooks(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestDeleteBookOwnerOnly(t *testing.T) {
	db := testdb.Setup(t)
	svc := catalog.NewService(db, changefeed.NewRecorder())
	owner := testdb.SeedProfile(t, db, "owner@example.com")
	stranger := testdb.SeedProfile(t, db, "stranger@example.com")
	ctx := context.Background()

	book, err := svc.CreateBook(ctx, owner, catalog.NewBook{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	err = svc.DeleteBook(ctx, stranger, book.ID)
	assert.ErrorIs(t, err, authz.ErrDenied)

	// Deleting a missing book fails exactly the same way.
	err = svc.DeleteBook(ctx, stranger, uuid.New())
	assert.ErrorIs(t, err, authz.ErrDenied)

	require.NoError(t, svc.DeleteBook(ctx, owner, book.ID))
	_, err = svc.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)
}

func TestDeleteCascadesToTransactions(t *testing.T) {
	db := testdb.Setup(t)
	svc := catalog.NewService(db, changefeed.NewRecorder())
	owner := testdb.SeedProfile(t, db, "owner@example.com")
	borrower := testdb.SeedProfile(t, db, "borrower@example.com")
	ctx := context.Background()

	book, err := svc.CreateBook(ctx, owner, catalog.NewBook{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO transactions (id, book_id, borrower_id)
		VALUES ($1, $2, $3)
	`, uuid.New(), book.ID, borrower)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBook(ctx, owner, book.ID))

	var remaining int
	require.NoError(t, db.Get(&remaining, `SELECT COUNT(*) FROM transactions WHERE book_id = $1`, book.ID))
	assert.Zero(t, remaining)
}

func TestMutationsRecordChangeEvents(t *testing.T) {
	db := testdb.Setup(t)
	svc := catalog.NewService(db, changefeed.NewRecorder())
	owner := testdb.SeedProfile(t, db, "owner@example.com")
	ctx := context.Background()

	book, err := svc.CreateBook(ctx, owner, catalog.NewBook{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteBook(ctx, owner, book.ID))

	events, err := changefeed.Recent(ctx, db, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, changefeed.KindDeleted, events[0].Kind)
	assert.Equal(t, changefeed.KindCreated, events[1].Kind)
	assert.Equal(t, book.ID, events[0].BookID)
}
