// internal/changefeed/hub_test.go
package changefeed

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubFanout(t *testing.T) {
	hub := NewHub()

	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelA()
	defer cancelB()

	ev := Event{ID: 1, BookID: uuid.New(), Kind: KindUpdated}
	hub.Publish(ev)

	assert.Equal(t, ev, <-a)
	assert.Equal(t, ev, <-b)
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()

	slow, cancel := hub.Subscribe()
	defer cancel()

	// Overflow the subscriber buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(Event{ID: int64(i), Kind: KindUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// The subscriber still sees a signal, which is all the feed promises.
	select {
	case <-slow:
	default:
		t.Fatal("expected at least one buffered event")
	}
}

func TestHubCancelIsIdempotent(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
}

func TestRunDecodesNotifications(t *testing.T) {
	hub := NewHub()
	events, cancel := hub.Subscribe()
	defer cancel()

	notifications := make(chan *pq.Notification, 3)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go hub.Run(ctx, notifications)

	bookID := uuid.New()
	notifications <- &pq.Notification{
		Channel: Channel,
		Extra:   `{"id":7,"book_id":"` + bookID.String() + `","kind":"created"}`,
	}

	select {
	case ev := <-events:
		assert.Equal(t, int64(7), ev.ID)
		assert.Equal(t, bookID, ev.BookID)
		assert.Equal(t, KindCreated, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestRunSignalsOnReconnect(t *testing.T) {
	hub := NewHub()
	events, cancel := hub.Subscribe()
	defer cancel()

	notifications := make(chan *pq.Notification, 1)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go hub.Run(ctx, notifications)

	// pq delivers nil after a connection loss; subscribers must still
	// get a cue to re-query.
	notifications <- nil

	select {
	case ev := <-events:
		assert.Equal(t, uuid.Nil, ev.BookID)
		require.Equal(t, KindUpdated, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("no reconnect signal delivered")
	}
}

func TestRunDropsMalformedPayloads(t *testing.T) {
	hub := NewHub()
	events, cancel := hub.Subscribe()
	defer cancel()

	notifications := make(chan *pq.Notification, 2)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go hub.Run(ctx, notifications)

	notifications <- &pq.Notification{Channel: Channel, Extra: "not json"}
	notifications <- &pq.Notification{Channel: Channel, Extra: `{"id":1,"book_id":"` + uuid.NewString() + `","kind":"updated"}`}

	select {
	case ev := <-events:
		// Only the well-formed payload survives.
		assert.Equal(t, int64(1), ev.ID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}
