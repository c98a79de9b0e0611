package repositories

import (
	"testing"

	"chat-hub/domain"
	"chat-hub/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUserRepository_AddAndLookup(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	user, err := domain.NewUser("Alice", "secret1", "Alice W")
	req.NoError(err)
	req.NoError(repo.Add(user))

	byID, err := repo.GetByID(user.ID)
	req.NoError(err)
	req.Equal(user.UserName, byID.UserName)
	req.Equal(user.PasswordHash, byID.PasswordHash)

	// Lookup is case-insensitive.
	byName, err := repo.GetByUserName("ALICE")
	req.NoError(err)
	req.Equal(user.ID, byName.ID)

	exists, err := repo.Exists("alice")
	req.NoError(err)
	req.True(exists)

	exists, err = repo.Exists("bob")
	req.NoError(err)
	req.False(exists)
}

func TestUserRepository_AddDuplicate(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	first, err := domain.NewUser("alice", "secret1", "")
	req.NoError(err)
	req.NoError(repo.Add(first))

	// Same name, different casing: still a duplicate.
	second, err := domain.NewUser("Alice", "secret2", "")
	req.NoError(err)
	req.ErrorIs(repo.Add(second), errors.ErrUserAlreadyExists)
}

func TestUserRepository_Update(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	user, err := domain.NewUser("alice", "secret1", "")
	req.NoError(err)
	req.NoError(repo.Add(user))

	user.Login()
	req.NoError(repo.Update(user))

	stored, err := repo.GetByID(user.ID)
	req.NoError(err)
	req.False(stored.LastLoginAt.IsZero())
}

func TestUserRepository_UpdateUnknown(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	ghost, err := domain.NewUser("ghost", "secret1", "")
	req.NoError(err)
	req.ErrorIs(repo.Update(ghost), errors.ErrUserNotFound)
}

func TestUserRepository_GetUnknown(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	_, err := repo.GetByID("nope")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repo.GetByUserName("nope")
	req.ErrorIs(err, errors.ErrUserNotFound)
}
