// internal/changefeed/changefeed_test.go
package changefeed_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vedavault/internal/changefeed"
	"vedavault/internal/testdb"
)

func TestRecordCommitsWithTransaction(t *testing.T) {
	db := testdb.Setup(t)
	rec := changefeed.NewRecorder()
	ctx := context.Background()
	bookID := uuid.New()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, rec.Record(ctx, tx, bookID, changefeed.KindCreated))
	require.NoError(t, tx.Commit())

	events, err := changefeed.Recent(ctx, db, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, bookID, events[0].BookID)
	assert.Equal(t, changefeed.KindCreated, events[0].Kind)
}

func TestRecordRollsBackWithTransaction(t *testing.T) {
	db := testdb.Setup(t)
	rec := changefeed.NewRecorder()
	ctx := context.Background()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, rec.Record(ctx, tx, uuid.New(), changefeed.KindUpdated))
	require.NoError(t, tx.Rollback())

	// A mutation that never committed must leave no signal behind.
	events, err := changefeed.Recent(ctx, db, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
