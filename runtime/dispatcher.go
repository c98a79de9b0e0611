package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat-hub/contract"
	"chat-hub/domain/event"
)

const defaultDeliveryTimeout = 2 * time.Second

// BroadcastDispatcher fans domain events out to the sinks subscribed to
// a room. Delivery is best effort with no ordering or retries; a slow
// sink is bounded by the per-delivery timeout so one stalled client
// cannot hold up a room.
//
// Subscriptions are keyed by (session, room): a session subscribed to
// three rooms receives each room's traffic exactly once.
type BroadcastDispatcher struct {
	mu    sync.RWMutex
	log   *slog.Logger
	rooms map[string]map[string]contract.EventSink
	// session -> rooms it is subscribed to, for DropSession.
	sessions map[string]map[string]struct{}
	// every attached sink, keyed by session, subscribed or not.
	sinks   map[string]contract.EventSink
	timeout time.Duration
}

func NewBroadcastDispatcher(log *slog.Logger) *BroadcastDispatcher {
	return &BroadcastDispatcher{
		log:      log,
		rooms:    make(map[string]map[string]contract.EventSink),
		sessions: make(map[string]map[string]struct{}),
		sinks:    make(map[string]contract.EventSink),
		timeout:  defaultDeliveryTimeout,
	}
}

// Attach registers a connection's sink so PublishAll reaches it even
// before it subscribes to any room.
func (d *BroadcastDispatcher) Attach(sessionID string, sink contract.EventSink) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sinks[sessionID] = sink
}

func (d *BroadcastDispatcher) Subscribe(sessionID, roomID string, sink contract.EventSink) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.rooms[roomID]; !ok {
		d.rooms[roomID] = make(map[string]contract.EventSink)
	}
	d.rooms[roomID][sessionID] = sink
	d.sinks[sessionID] = sink

	if _, ok := d.sessions[sessionID]; !ok {
		d.sessions[sessionID] = make(map[string]struct{})
	}
	d.sessions[sessionID][roomID] = struct{}{}
}

func (d *BroadcastDispatcher) Unsubscribe(sessionID, roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeLocked(sessionID, roomID)
}

// DropSession removes a session from every room it was subscribed to,
// the disconnect path.
func (d *BroadcastDispatcher) DropSession(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for roomID := range d.sessions[sessionID] {
		d.removeLocked(sessionID, roomID)
	}
	delete(d.sinks, sessionID)
}

// Publish delivers an event to every sink of a room. The snapshot is
// taken under the read lock; delivery happens outside it so a blocked
// sink never blocks Subscribe.
func (d *BroadcastDispatcher) Publish(roomID string, e event.DomainEvent) {
	d.mu.RLock()
	sinks := make([]contract.EventSink, 0, len(d.rooms[roomID]))
	for _, sink := range d.rooms[roomID] {
		sinks = append(sinks, sink)
	}
	d.mu.RUnlock()

	d.deliver(sinks, e)
}

// PublishAll delivers an event once to every attached session,
// including connections not subscribed to any room yet.
func (d *BroadcastDispatcher) PublishAll(e event.DomainEvent) {
	d.mu.RLock()
	sinks := make([]contract.EventSink, 0, len(d.sinks))
	for _, sink := range d.sinks {
		sinks = append(sinks, sink)
	}
	d.mu.RUnlock()

	d.deliver(sinks, e)
}

func (d *BroadcastDispatcher) deliver(sinks []contract.EventSink, e event.DomainEvent) {
	for _, sink := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := sink.Consume(ctx, e); err != nil {
			d.log.Debug("event delivery failed", "event", e.Name(), "error", err)
		}
		cancel()
	}
}

// removeLocked must run under the write lock.
func (d *BroadcastDispatcher) removeLocked(sessionID, roomID string) {
	if members, ok := d.rooms[roomID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(d.rooms, roomID)
		}
	}
	if rooms, ok := d.sessions[sessionID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(d.sessions, sessionID)
		}
	}
}
