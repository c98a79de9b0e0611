//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-hub/domain/event"
)

// Worker doesn't protect itself; the supervisor restarts it after a
// panic or an error.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName retrieves the type name of a worker for logging and
// supervision, avoiding a manual naming method on the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one live consumer of broadcast events, typically a
// session's outbound channel owned by the transport layer.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IDispatcher fans events out to the sessions subscribed to a room.
// Delivery is best effort: no ordering, durability, or retries.
// Attach registers a connection's sink before it joins any room, so
// global events reach it; Subscribe implies Attach.
type IDispatcher interface {
	Attach(sessionID string, sink EventSink)
	Subscribe(sessionID, roomID string, sink EventSink)
	Unsubscribe(sessionID, roomID string)
	DropSession(sessionID string)
	Publish(roomID string, e event.DomainEvent)
	PublishAll(e event.DomainEvent)
}
