package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chat-hub/domain"
	"chat-hub/errors"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const DefaultQueueKey = "chat:messages:pending"

// RedisQueue is a durable FIFO over a Redis list: LPUSH on enqueue,
// BRPOP on dequeue. Single-consumer use keeps per-room persistence in
// enqueue order without an external sequencer.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

// payload is the wire form of a queued message. Message types travel as
// their string label so the queue content stays inspectable.
type payload struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	DisplayName string    `json:"displayName,omitempty"`
	RoomID      string    `json:"roomId"`
	Content     string    `json:"content"`
	Type        string    `json:"type"`
	MediaURL    string    `json:"mediaUrl,omitempty"`
	AltText     string    `json:"altText,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func (q *RedisQueue) Enqueue(ctx context.Context, msg domain.Message) error {
	data, err := json.Marshal(toPayload(msg))
	if err != nil {
		return errors.NewPermanent(err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return errors.NewTransient(err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*domain.Message, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewTransient(err)
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return nil, errors.NewPermanent(fmt.Errorf("unexpected BRPOP reply of length %d", len(res)))
	}

	var p payload
	if err := json.Unmarshal([]byte(res[1]), &p); err != nil {
		return nil, errors.NewPermanent(err)
	}
	msg, err := fromPayload(p)
	if err != nil {
		return nil, errors.NewPermanent(err)
	}
	return msg, nil
}

// Len reports the number of pending messages, for the stats surface.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

func toPayload(msg domain.Message) payload {
	return payload{
		ID:          msg.ID.String(),
		UserID:      msg.UserID,
		UserName:    msg.UserName,
		DisplayName: msg.DisplayName,
		RoomID:      msg.RoomID,
		Content:     msg.Content,
		Type:        msg.Type.String(),
		MediaURL:    msg.MediaURL,
		AltText:     msg.AltText,
		Timestamp:   msg.Timestamp,
	}
}

func fromPayload(p payload) (*domain.Message, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Message{
		ID:          id,
		UserID:      p.UserID,
		UserName:    p.UserName,
		DisplayName: p.DisplayName,
		RoomID:      p.RoomID,
		Content:     p.Content,
		Type:        domain.ParseMessageType(p.Type),
		MediaURL:    p.MediaURL,
		AltText:     p.AltText,
		Timestamp:   p.Timestamp.UTC(),
	}, nil
}
