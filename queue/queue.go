//go:generate go run go.uber.org/mock/mockgen -source=queue.go -destination=../mocks/mock_queue.go -package=mocks
// Package queue buffers accepted messages between the send path and the
// persistence worker. The Redis implementation is the durable
// at-least-once boundary: a message enqueued there survives a process
// restart until the worker dequeues and persists it.
package queue

import (
	"context"
	"time"

	"chat-hub/domain"
)

type Queue interface {
	// Enqueue must not return nil unless the message is safely buffered.
	Enqueue(ctx context.Context, msg domain.Message) error
	// Dequeue blocks up to timeout. An empty queue returns (nil, nil);
	// a closed queue returns errors.ErrQueueClosed.
	Dequeue(ctx context.Context, timeout time.Duration) (*domain.Message, error)
}
