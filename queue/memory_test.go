package queue

import (
	"context"
	"testing"
	"time"

	"chat-hub/domain"
	"chat-hub/errors"

	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_FIFO(t *testing.T) {
	req := require.New(t)
	q := NewMemoryQueue(16)
	ctx := context.Background()

	first := domain.NewMessage("u1", "alice", "Alice", "r1", "first", domain.MessageTypeText, "", "")
	second := domain.NewMessage("u1", "alice", "Alice", "r1", "second", domain.MessageTypeText, "", "")

	req.NoError(q.Enqueue(ctx, first))
	req.NoError(q.Enqueue(ctx, second))

	got, err := q.Dequeue(ctx, time.Second)
	req.NoError(err)
	req.Equal("first", got.Content)

	got, err = q.Dequeue(ctx, time.Second)
	req.NoError(err)
	req.Equal("second", got.Content)
}

func TestMemoryQueue_DequeueTimeout(t *testing.T) {
	req := require.New(t)
	q := NewMemoryQueue(16)

	start := time.Now()
	got, err := q.Dequeue(context.Background(), 20*time.Millisecond)
	req.NoError(err)
	req.Nil(got)
	req.GreaterOrEqual(time.Since(start), 20*time.Millisecond)
}

func TestMemoryQueue_DequeueObservesCancellation(t *testing.T) {
	req := require.New(t)
	q := NewMemoryQueue(16)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := q.Dequeue(ctx, time.Minute)
	req.ErrorIs(err, context.Canceled)
}

func TestMemoryQueue_CloseUnblocksFullQueueProducer(t *testing.T) {
	req := require.New(t)
	q := NewMemoryQueue(1)
	ctx := context.Background()

	req.NoError(q.Enqueue(ctx, domain.NewMessage("u1", "alice", "Alice", "r1", "fills the buffer", domain.MessageTypeText, "", "")))

	// Second producer blocks in its send on the full buffer.
	result := make(chan error, 1)
	go func() {
		result <- q.Enqueue(ctx, domain.NewMessage("u1", "alice", "Alice", "r1", "blocked", domain.MessageTypeText, "", ""))
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-result:
		req.ErrorIs(err, errors.ErrQueueClosed)
	case <-time.After(time.Second):
		req.Fail("blocked producer was not released by Close")
	}

	// The message accepted before Close is still delivered.
	got, err := q.Dequeue(ctx, time.Second)
	req.NoError(err)
	req.Equal("fills the buffer", got.Content)
}

func TestMemoryQueue_Close(t *testing.T) {
	req := require.New(t)
	q := NewMemoryQueue(16)
	q.Close()

	err := q.Enqueue(context.Background(), domain.Message{})
	req.ErrorIs(err, errors.ErrQueueClosed)

	_, err = q.Dequeue(context.Background(), time.Second)
	req.ErrorIs(err, errors.ErrQueueClosed)
}
