// Package projection builds read models from observed events. It never
// emits events and keeps no authority over the data; everything here
// can be rebuilt from the message log.
package projection

import (
	"context"
	"sync"
	"time"

	"chat-hub/domain/event"
)

const defaultCapacity = 100

type Entry struct {
	RoomID   string
	UserName string
	Content  string
	At       time.Time
}

// ActivityTimeline keeps the last N sent messages across all rooms, a
// cheap in-memory answer for "what just happened" surfaces like the
// stats endpoint.
type ActivityTimeline struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
}

func NewActivityTimeline(capacity int) *ActivityTimeline {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &ActivityTimeline{capacity: capacity}
}

// Consume keeps only MessageSent events and ignores the rest.
func (t *ActivityTimeline) Consume(_ context.Context, e event.DomainEvent) error {
	sent, ok := e.(event.MessageSent)
	if !ok {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, Entry{
		RoomID:   sent.RoomID,
		UserName: sent.UserName,
		Content:  sent.Content,
		At:       sent.OccurredAt(),
	})
	if len(t.entries) > t.capacity {
		t.entries = t.entries[len(t.entries)-t.capacity:]
	}
	return nil
}

// Entries returns a snapshot, oldest first.
func (t *ActivityTimeline) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *ActivityTimeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
