package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/queue"
	"chat-hub/repositories"
)

const (
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	dequeueTimeout        = 5 * time.Second
)

// PersistenceWorker drains the message queue into the message log.
// It is the single queue consumer, so delivery order within a room is
// the enqueue order.
//
// Writes failing with a transient error are retried up to maxAttempts
// with a linear backoff (baseDelay, 2*baseDelay, ...). Permanent
// errors and exhausted retries abandon the message with an error log;
// the broadcast has already happened, only durability is lost.
type PersistenceWorker struct {
	log         *slog.Logger
	queue       queue.Queue
	messages    repositories.IMessageRepository
	maxAttempts int
	baseDelay   time.Duration
}

func NewPersistenceWorker(log *slog.Logger, q queue.Queue, messages repositories.IMessageRepository) *PersistenceWorker {
	return &PersistenceWorker{
		log:         log,
		queue:       q,
		messages:    messages,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultRetryBaseDelay,
	}
}

// WithRetryPolicy overrides the attempt count and backoff base delay.
func (w *PersistenceWorker) WithRetryPolicy(maxAttempts int, baseDelay time.Duration) *PersistenceWorker {
	w.maxAttempts = maxAttempts
	w.baseDelay = baseDelay
	return w
}

func (w *PersistenceWorker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		msg, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err == errors.ErrQueueClosed {
			w.log.Info("queue closed, persistence worker stopping")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Error("dequeue failed", "error", err)
			continue
		}
		if msg == nil {
			// Timed out on an empty queue, poll again.
			continue
		}

		w.persist(ctx, *msg)
	}
}

// persist attempts the append with retries. Sleeps are context-aware
// so shutdown is never delayed by a backoff.
func (w *PersistenceWorker) persist(ctx context.Context, msg domain.Message) {
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err := w.messages.Append(msg)
		if err == nil {
			return
		}

		if !errors.IsTransient(err) {
			w.log.Error("abandoning message, permanent failure",
				"messageId", msg.ID, "roomId", msg.RoomID, "error", err)
			return
		}

		if attempt == w.maxAttempts {
			w.log.Error("abandoning message, retries exhausted",
				"messageId", msg.ID, "roomId", msg.RoomID, "attempts", attempt, "error", err)
			return
		}

		w.log.Warn("message append failed, retrying",
			"messageId", msg.ID, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * w.baseDelay):
		}
	}
}
