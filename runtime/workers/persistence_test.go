package workers

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/mocks"
	"chat-hub/queue"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testWorker(t *testing.T, q queue.Queue, repo *mocks.MockIMessageRepository) *PersistenceWorker {
	t.Helper()
	return NewPersistenceWorker(slog.New(slog.DiscardHandler), q, repo).
		WithRetryPolicy(3, 5*time.Millisecond)
}

func enqueueOne(t *testing.T, q queue.Queue) domain.Message {
	t.Helper()
	msg := domain.NewMessage("u1", "alice", "", "r1", "hello", domain.MessageTypeText, "", "")
	require.NoError(t, q.Enqueue(context.Background(), msg))
	return msg
}

func TestPersistenceWorker_RetriesTransientThenSucceeds(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q := queue.NewMemoryQueue(8)
	repo := mocks.NewMockIMessageRepository(ctrl)

	persisted := make(chan struct{})
	gomock.InOrder(
		repo.EXPECT().Append(gomock.Any()).Return(errors.NewTransient(fmt.Errorf("disk hiccup"))).Times(2),
		repo.EXPECT().Append(gomock.Any()).DoAndReturn(func(domain.Message) error {
			close(persisted)
			return nil
		}),
	)

	enqueueOne(t, q)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = testWorker(t, q, repo).Run(ctx) }()

	select {
	case <-persisted:
		// Two transient failures, then exactly one successful append.
	case <-time.After(2 * time.Second):
		req.Fail("message was never persisted")
	}
}

func TestPersistenceWorker_AbandonsPermanentFailures(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q := queue.NewMemoryQueue(8)
	repo := mocks.NewMockIMessageRepository(ctrl)

	attempted := make(chan struct{})
	// A permanent failure is not retried.
	repo.EXPECT().Append(gomock.Any()).DoAndReturn(func(domain.Message) error {
		close(attempted)
		return errors.NewPermanent(fmt.Errorf("corrupt payload"))
	}).Times(1)

	enqueueOne(t, q)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = testWorker(t, q, repo).Run(ctx) }()

	select {
	case <-attempted:
	case <-time.After(2 * time.Second):
		req.Fail("append was never attempted")
	}
	// Give a retry a chance to happen; Times(1) fails the test if it does.
	time.Sleep(50 * time.Millisecond)
}

func TestPersistenceWorker_ExhaustsRetriesAndDrops(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q := queue.NewMemoryQueue(8)
	repo := mocks.NewMockIMessageRepository(ctrl)

	attempts := make(chan struct{}, 3)
	repo.EXPECT().Append(gomock.Any()).DoAndReturn(func(domain.Message) error {
		attempts <- struct{}{}
		return errors.NewTransient(fmt.Errorf("still down"))
	}).Times(3)

	enqueueOne(t, q)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = testWorker(t, q, repo).Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-attempts:
		case <-time.After(2 * time.Second):
			req.Failf("missing attempt", "only %d attempts seen", i)
		}
	}
	// The message is dropped after the third attempt, never retried again.
	time.Sleep(50 * time.Millisecond)
}

func TestPersistenceWorker_StopsWhenQueueCloses(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q := queue.NewMemoryQueue(8)
	repo := mocks.NewMockIMessageRepository(ctrl)

	done := make(chan error, 1)
	go func() { done <- testWorker(t, q, repo).Run(context.Background()) }()

	q.Close()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("worker did not stop on queue close")
	}
}
