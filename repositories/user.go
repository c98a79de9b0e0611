//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"strings"
	"time"

	"chat-hub/domain"
	"chat-hub/errors"

	"github.com/dgraph-io/badger/v4"
)

type IUserRepository interface {
	GetByID(id string) (*domain.User, error)
	GetByUserName(userName string) (*domain.User, error)
	Exists(userName string) (bool, error)
	Add(user *domain.User) error
	Update(user *domain.User) error
}

// UserRepository persists accounts in BadgerDB. Records live under
// "user:{id}"; a secondary index "username:{lowercased}" -> id enforces
// case-insensitive uniqueness inside the Add transaction.
type UserRepository struct {
	db    *badger.DB
	locks aggregateLocks
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRecord struct {
	ID           string    `json:"id"`
	UserName     string    `json:"userName"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	LastLoginAt  time.Time `json:"lastLoginAt,omitempty"`
}

func userKey(id string) []byte { return []byte("user:" + id) }

func userNameKey(userName string) []byte {
	return []byte("username:" + strings.ToLower(strings.TrimSpace(userName)))
}

func (r *UserRepository) Add(user *domain.User) error {
	data, err := json.Marshal(toUserRecord(user))
	if err != nil {
		return errors.NewPermanent(err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		nameKey := userNameKey(user.UserName)
		if _, err := txn.Get(nameKey); err == nil {
			return errors.ErrUserAlreadyExists
		} else if err != badger.ErrKeyNotFound {
			return errors.NewTransient(err)
		}
		if err := txn.Set(nameKey, []byte(user.ID)); err != nil {
			return errors.NewTransient(err)
		}
		if err := txn.Set(userKey(user.ID), data); err != nil {
			return errors.NewTransient(err)
		}
		return nil
	})
}

func (r *UserRepository) Update(user *domain.User) error {
	mu := r.locks.lock(user.ID)
	defer mu.Unlock()

	data, err := json.Marshal(toUserRecord(user))
	if err != nil {
		return errors.NewPermanent(err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(user.ID)); err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
		} else if err != nil {
			return errors.NewTransient(err)
		}
		return txn.Set(userKey(user.ID), data)
	})
}

func (r *UserRepository) GetByID(id string) (*domain.User, error) {
	var rec userRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
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
	return fromUserRecord(rec), nil
}

func (r *UserRepository) GetByUserName(userName string) (*domain.User, error) {
	var id string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userNameKey(userName))
		if err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
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

func (r *UserRepository) Exists(userName string) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(userNameKey(userName))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, errors.NewTransient(err)
	}
	return true, nil
}

func toUserRecord(user *domain.User) userRecord {
	return userRecord{
		ID:           user.ID,
		UserName:     user.UserName,
		DisplayName:  user.DisplayName,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		LastLoginAt:  user.LastLoginAt,
	}
}

func fromUserRecord(rec userRecord) *domain.User {
	return &domain.User{
		ID:           rec.ID,
		UserName:     rec.UserName,
		DisplayName:  rec.DisplayName,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt.UTC(),
		LastLoginAt:  rec.LastLoginAt.UTC(),
	}
}
