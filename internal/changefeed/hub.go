// internal/changefeed/hub.go
package changefeed

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Hub fans Postgres notifications out to in-process subscribers.
// Delivery is best effort: a subscriber that cannot keep up loses
// signals, which is harmless because every signal means the same thing,
// "re-query the books you care about".
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a new feed consumer. The returned cancel func
// must be called when the consumer goes away.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, 16)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; it will re-query on its next signal.
		}
	}
}

// Run pumps notifications from the listener into the hub until ctx is
// cancelled. A nil notification is pq's reconnect marker; subscribers
// get a synthetic signal so they re-query anything missed while the
// connection was down.
func (h *Hub) Run(ctx context.Context, notifications <-chan *pq.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if n == nil {
				h.Publish(Event{Kind: KindUpdated, CreatedAt: time.Now().UTC()})
				continue
			}
			var ev Event
			if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
				log.Printf("changefeed: dropping malformed notification: %v", err)
				continue
			}
			h.Publish(ev)
		}
	}
}

// Listen opens a dedicated LISTEN connection and wires it into the hub.
func (h *Hub) Listen(ctx context.Context, dsn string) error {
	listener := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("changefeed: listener event %d: %v", ev, err)
		}
	})
	if err := listener.Listen(Channel); err != nil {
		listener.Close()
		return err
	}
	go func() {
		defer listener.Close()
		h.Run(ctx, listener.Notify)
	}()
	return nil
}
