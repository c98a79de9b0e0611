package queue

import (
	"context"
	"sync"
	"time"

	"chat-hub/domain"
	"chat-hub/errors"
)

// MemoryQueue is the single-process stand-in for the durable queue:
// same contract, no restart survival. Used by tests and local runs
// without Redis.
//
// The message channel is never closed; Close signals through done
// instead, so a producer blocked in its send cannot panic when Close
// runs concurrently.
type MemoryQueue struct {
	ch   chan domain.Message
	done chan struct{}
	once sync.Once
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{
		ch:   make(chan domain.Message, capacity),
		done: make(chan struct{}),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, msg domain.Message) error {
	select {
	case <-q.done:
		return errors.ErrQueueClosed
	default:
	}

	select {
	case q.ch <- msg:
		return nil
	case <-q.done:
		return errors.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (*domain.Message, error) {
	// Drain buffered messages before honoring Close, so nothing
	// already accepted is lost.
	select {
	case msg := <-q.ch:
		return &msg, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-q.ch:
		return &msg, nil
	case <-q.done:
		return nil, errors.ErrQueueClosed
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases blocked producers and consumers. Enqueue after Close
// is an error; Dequeue keeps serving until the buffer is empty.
func (q *MemoryQueue) Close() {
	q.once.Do(func() { close(q.done) })
}

func (q *MemoryQueue) Len() int { return len(q.ch) }
