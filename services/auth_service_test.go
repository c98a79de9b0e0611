package services

import (
	"testing"
	"time"

	"chat-hub/auth"
	"chat-hub/errors"
	"chat-hub/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func testAuthService(t *testing.T) IAuthService {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	issuer := auth.NewTokenIssuer([]byte("test-signing-key"), time.Hour)
	return NewAuthService(repositories.NewUserRepository(db), issuer)
}

func TestAuthService_RegisterIssuesSession(t *testing.T) {
	req := require.New(t)
	svc := testAuthService(t)

	session, events, err := svc.Register("alice", "secret1", "")
	req.NoError(err)
	req.NotEmpty(session.Token)
	req.Equal("alice", session.User.UserName)
	// Display name falls back to the username.
	req.Equal("alice", session.User.DisplayName)
	req.Len(events, 1)
	req.Equal("UserRegistered", events[0].Name())
}

func TestAuthService_RegisterRejectsBadInput(t *testing.T) {
	req := require.New(t)
	svc := testAuthService(t)

	_, _, err := svc.Register("ab", "secret1", "")
	req.True(errors.IsValidation(err))

	_, _, err = svc.Register("alice", "short", "")
	req.True(errors.IsValidation(err))
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	req := require.New(t)
	svc := testAuthService(t)

	_, _, err := svc.Register("alice", "secret1", "")
	req.NoError(err)

	_, _, err = svc.Register("ALICE", "secret2", "")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestAuthService_Login(t *testing.T) {
	req := require.New(t)
	svc := testAuthService(t)

	_, _, err := svc.Register("alice", "secret1", "Alice W")
	req.NoError(err)

	session, events, err := svc.Login("alice", "secret1")
	req.NoError(err)
	req.NotEmpty(session.Token)
	req.Equal("Alice W", session.User.DisplayName)
	req.False(session.User.LastLoginAt.IsZero())
	req.Len(events, 1)
	req.Equal("UserLoggedIn", events[0].Name())
}

func TestAuthService_LoginRejections(t *testing.T) {
	req := require.New(t)
	svc := testAuthService(t)

	_, _, err := svc.Register("alice", "secret1", "")
	req.NoError(err)

	// Wrong password and unknown user are indistinguishable.
	_, _, err = svc.Login("alice", "wrong-password")
	req.ErrorIs(err, errors.ErrInvalidCredentials)

	_, _, err = svc.Login("nobody", "secret1")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func TestAuthService_SetDisplayName(t *testing.T) {
	req := require.New(t)
	svc := testAuthService(t)

	session, _, err := svc.Register("alice", "secret1", "")
	req.NoError(err)

	profile, events, err := svc.SetDisplayName(session.User.ID, "Allie")
	req.NoError(err)
	req.Equal("Allie", profile.DisplayName)
	req.Len(events, 1)
	req.Equal("DisplayNameChanged", events[0].Name())

	// Persisted, not just in memory.
	stored, err := svc.GetProfile(session.User.ID)
	req.NoError(err)
	req.Equal("Allie", stored.DisplayName)
}
