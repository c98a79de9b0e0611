//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"chat-hub/domain"
	"chat-hub/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type IRoomRepository interface {
	GetByID(id string) (*domain.Room, error)
	GetByName(name string) (*domain.Room, error)
	Add(room *domain.Room) error
	Update(room *domain.Room) error
	Mutate(roomID string, fn func(room *domain.Room) error) (*domain.Room, error)
	GetPublicRooms() ([]*domain.Room, error)
	GetUserRooms(userID string) ([]*domain.Room, error)
	SearchByName(substring string) ([]*domain.Room, error)
	EnsureLobbyExists() (*domain.Room, error)
}

// RoomRepository persists rooms in BadgerDB under "room:{id}" with a
// case-insensitive name index "roomname:{lowercased}" -> id.
type RoomRepository struct {
	db    *badger.DB
	locks aggregateLocks
}

func NewRoomRepository(db *badger.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

type roomRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	OwnerID      string    `json:"ownerId"`
	IsPublic     bool      `json:"isPublic"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	MemberIDs    []string  `json:"memberIds"`
}

const roomPrefix = "room:"

func roomKey(id string) []byte { return []byte(roomPrefix + id) }

func roomNameKey(name string) []byte {
	return []byte("roomname:" + strings.ToLower(strings.TrimSpace(name)))
}

func (r *RoomRepository) Add(room *domain.Room) error {
	data, err := json.Marshal(toRoomRecord(room))
	if err != nil {
		return errors.NewPermanent(err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		nameKey := roomNameKey(room.RoomName)
		if _, err := txn.Get(nameKey); err == nil {
			return errors.ErrRoomAlreadyExists
		} else if err != badger.ErrKeyNotFound {
			return errors.NewTransient(err)
		}
		if err := txn.Set(nameKey, []byte(room.ID)); err != nil {
			return errors.NewTransient(err)
		}
		if err := txn.Set(roomKey(room.ID), data); err != nil {
			return errors.NewTransient(err)
		}
		return nil
	})
}

func (r *RoomRepository) Update(room *domain.Room) error {
	data, err := json.Marshal(toRoomRecord(room))
	if err != nil {
		return errors.NewPermanent(err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(room.ID)); err == badger.ErrKeyNotFound {
			return errors.ErrRoomNotFound
		} else if err != nil {
			return errors.NewTransient(err)
		}
		return txn.Set(roomKey(room.ID), data)
	})
}

// Mutate runs fn on the stored room under the per-room lock and saves
// the result. This is the linearization point for membership: two
// concurrent joins on one room serialize here while other rooms stay
// untouched.
func (r *RoomRepository) Mutate(roomID string, fn func(room *domain.Room) error) (*domain.Room, error) {
	mu := r.locks.lock(roomID)
	defer mu.Unlock()

	room, err := r.GetByID(roomID)
	if err != nil {
		return nil, err
	}
	if err := fn(room); err != nil {
		return nil, err
	}
	if err := r.Update(room); err != nil {
		return nil, err
	}
	return room, nil
}

func (r *RoomRepository) GetByID(id string) (*domain.Room, error) {
	var rec roomRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(id))
		if err == badger.ErrKeyNotFound {
			return errors.ErrRoomNotFound
		} else if err != nil {
			return errors.NewTransient(err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return fromRoomRecord(rec), nil
}

func (r *RoomRepository) GetByName(name string) (*domain.Room, error) {
	var id string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomNameKey(name))
		if err == badger.ErrKeyNotFound {
			return errors.ErrRoomNotFound
		} else if err != nil {
			return errors.NewTransient(err)
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

// GetPublicRooms returns public rooms ordered by member count
// descending, then name.
func (r *RoomRepository) GetPublicRooms() ([]*domain.Room, error) {
	rooms, err := r.scan(func(rec roomRecord) bool { return rec.IsPublic })
	if err != nil {
		return nil, err
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].MemberCount != rooms[j].MemberCount {
			return rooms[i].MemberCount > rooms[j].MemberCount
		}
		return strings.ToLower(rooms[i].RoomName) < strings.ToLower(rooms[j].RoomName)
	})
	return rooms, nil
}

func (r *RoomRepository) GetUserRooms(userID string) ([]*domain.Room, error) {
	return r.scan(func(rec roomRecord) bool {
		return lo.Contains(rec.MemberIDs, userID)
	})
}

func (r *RoomRepository) SearchByName(substring string) ([]*domain.Room, error) {
	needle := strings.ToLower(strings.TrimSpace(substring))
	if needle == "" {
		return nil, nil
	}
	return r.scan(func(rec roomRecord) bool {
		return strings.Contains(strings.ToLower(rec.Name), needle)
	})
}

// EnsureLobbyExists creates the well-known lobby if absent. Safe to
// call on every startup.
func (r *RoomRepository) EnsureLobbyExists() (*domain.Room, error) {
	room, err := r.GetByID(domain.LobbyRoomID)
	if err == nil {
		return room, nil
	}
	if err != errors.ErrRoomNotFound {
		return nil, err
	}

	lobby := domain.NewLobby()
	if err := r.Add(lobby); err != nil && err != errors.ErrRoomAlreadyExists {
		return nil, err
	}
	return r.GetByID(domain.LobbyRoomID)
}

func (r *RoomRepository) scan(keep func(roomRecord) bool) ([]*domain.Room, error) {
	var rooms []*domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(roomPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec roomRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return errors.NewPermanent(err)
				}
				if keep(rec) {
					rooms = append(rooms, fromRoomRecord(rec))
				}
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
	return rooms, nil
}

func toRoomRecord(room *domain.Room) roomRecord {
	return roomRecord{
		ID:           room.ID,
		Name:         room.RoomName,
		Description:  room.Description,
		OwnerID:      room.OwnerID,
		IsPublic:     room.IsPublic,
		PasswordHash: room.PasswordHash,
		CreatedAt:    room.CreatedAt,
		MemberIDs:    room.MemberIDs(),
	}
}

func fromRoomRecord(rec roomRecord) *domain.Room {
	return domain.Reconstitute(rec.ID, rec.Name, rec.Description, rec.OwnerID,
		rec.IsPublic, rec.PasswordHash, rec.CreatedAt.UTC(), rec.MemberIDs)
}
