//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-hub/domain"
	"chat-hub/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	Append(msg domain.Message) error
	GetByID(id uuid.UUID) (*domain.Message, error)
	GetRoomMessages(roomID string, count int) ([]domain.Message, error)
	GetRecentMessages(count int) ([]domain.Message, error)
	GetRoomMessageCount(roomID string) (int, error)
}

// MessageRepository is the append-only message log in BadgerDB.
//
// Three key families per message:
//  1. "msg:{roomId}:{timestamp_padded}:{uuid}" holds the record; the
//     19-digit zero-padded UnixNano makes lexicographic order equal
//     chronological order, and the UUID disambiguates two messages
//     landing on the same nanosecond.
//  2. "recent:{timestamp_padded}:{uuid}" -> primary key, the global
//     time-partitioned log for cross-room recent-activity queries.
//  3. "msgid:{uuid}" -> primary key, the point-lookup index.
type MessageRepository struct {
	db *badger.DB
}

func NewMessageRepository(db *badger.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

type messageRecord struct {
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

const maxPaddedTimestamp = "9999999999999999999"

func messageKey(msg domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", msg.RoomID, msg.Timestamp.UnixNano(), msg.ID))
}

func recentKey(msg domain.Message) []byte {
	return []byte(fmt.Sprintf("recent:%019d:%s", msg.Timestamp.UnixNano(), msg.ID))
}

func messageIDKey(id uuid.UUID) []byte {
	return []byte("msgid:" + id.String())
}

// Append writes the record and both indexes in one transaction. I/O
// failures are transient (the persistence worker retries them);
// serialization failures are permanent.
func (r *MessageRepository) Append(msg domain.Message) error {
	data, err := json.Marshal(toMessageRecord(msg))
	if err != nil {
		return errors.NewPermanent(err)
	}

	primary := messageKey(msg)
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(primary, data); err != nil {
			return err
		}
		if err := txn.Set(recentKey(msg), primary); err != nil {
			return err
		}
		return txn.Set(messageIDKey(msg.ID), primary)
	})
	if err != nil {
		return errors.NewTransient(err)
	}
	return nil
}

func (r *MessageRepository) GetByID(id uuid.UUID) (*domain.Message, error) {
	var rec messageRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messageIDKey(id))
		if err != nil {
			return err
		}
		var primary []byte
		if err := item.Value(func(val []byte) error {
			primary = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}
		item, err = txn.Get(primary)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewTransient(err)
	}
	msg, err := fromMessageRecord(rec)
	if err != nil {
		return nil, errors.NewPermanent(err)
	}
	return msg, nil
}

// GetRoomMessages returns the most recent count messages of a room in
// ascending timestamp order. It walks the per-room log backwards from
// the newest key and reverses the batch.
func (r *MessageRepository) GetRoomMessages(roomID string, count int) ([]domain.Message, error) {
	if count <= 0 {
		return nil, nil
	}

	var records []messageRecord
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:" + roomID + ":")
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte(nil), prefix...), []byte(maxPaddedTimestamp)...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(records) < count; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec messageRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return errors.NewPermanent(err)
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return recordsToMessages(lo.Reverse(records))
}

// GetRecentMessages returns the latest count messages across all rooms,
// ascending by timestamp.
func (r *MessageRepository) GetRecentMessages(count int) ([]domain.Message, error) {
	if count <= 0 {
		return nil, nil
	}

	var records []messageRecord
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("recent:")
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte(nil), prefix...), []byte(maxPaddedTimestamp)...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(records) < count; it.Next() {
			var primary []byte
			if err := it.Item().Value(func(val []byte) error {
				primary = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}

			item, err := txn.Get(primary)
			if err == badger.ErrKeyNotFound {
				continue
			} else if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				var rec messageRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return errors.NewPermanent(err)
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return recordsToMessages(lo.Reverse(records))
}

func (r *MessageRepository) GetRoomMessageCount(roomID string) (int, error) {
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:" + roomID + ":")
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, errors.NewTransient(err)
	}
	return count, nil
}

func recordsToMessages(records []messageRecord) ([]domain.Message, error) {
	messages := make([]domain.Message, 0, len(records))
	for _, rec := range records {
		msg, err := fromMessageRecord(rec)
		if err != nil {
			return nil, errors.NewPermanent(err)
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

func toMessageRecord(msg domain.Message) messageRecord {
	return messageRecord{
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

func fromMessageRecord(rec messageRecord) (*domain.Message, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Message{
		ID:          id,
		UserID:      rec.UserID,
		UserName:    rec.UserName,
		DisplayName: rec.DisplayName,
		RoomID:      rec.RoomID,
		Content:     rec.Content,
		Type:        domain.ParseMessageType(rec.Type),
		MediaURL:    rec.MediaURL,
		AltText:     rec.AltText,
		Timestamp:   rec.Timestamp.UTC(),
	}, nil
}
