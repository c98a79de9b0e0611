package services

import (
	"testing"

	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func testRoomService(t *testing.T) IRoomService {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRoomService(repositories.NewRoomRepository(db))
}

func TestRoomService_CreateRoom(t *testing.T) {
	req := require.New(t)
	svc := testRoomService(t)

	view, events, err := svc.CreateRoom("Team Alpha", "daily chatter", "u1", true, "")
	req.NoError(err)
	req.Equal("Team Alpha", view.Name)
	req.Equal(1, view.MemberCount)
	req.Contains(view.MemberIDs, "u1")

	// Creation announces the room and the owner's join.
	req.Len(events, 2)
	req.Equal("RoomCreated", events[0].Name())
	req.Equal("UserJoined", events[1].Name())
}

func TestRoomService_JoinPublicRoom(t *testing.T) {
	req := require.New(t)
	svc := testRoomService(t)

	created, _, err := svc.CreateRoom("Open", "", "u1", true, "")
	req.NoError(err)

	view, events, err := svc.JoinRoom(created.ID, "u2", "")
	req.NoError(err)
	req.Equal(2, view.MemberCount)
	req.Len(events, 1)
	req.Equal("UserJoined", events[0].Name())

	_, _, err = svc.JoinRoom(created.ID, "u2", "")
	req.ErrorIs(err, errors.ErrAlreadyInRoom)
}

func TestRoomService_JoinPrivateRoom(t *testing.T) {
	req := require.New(t)
	svc := testRoomService(t)

	created, _, err := svc.CreateRoom("Vault", "", "u1", false, "secret1")
	req.NoError(err)

	// No password: the client should prompt, not fail hard.
	_, _, err = svc.JoinRoom(created.ID, "u2", "")
	req.ErrorIs(err, errors.ErrPasswordRequired)

	_, _, err = svc.JoinRoom(created.ID, "u2", "wrong-password")
	req.ErrorIs(err, errors.ErrInvalidPassword)

	view, _, err := svc.JoinRoom(created.ID, "u2", "secret1")
	req.NoError(err)
	req.Equal(2, view.MemberCount)
}

func TestRoomService_JoinRoomByName(t *testing.T) {
	req := require.New(t)
	svc := testRoomService(t)

	_, _, err := svc.CreateRoom("Named", "", "u1", true, "")
	req.NoError(err)

	view, _, err := svc.JoinRoomByName("named", "u2", "")
	req.NoError(err)
	req.Equal("Named", view.Name)

	_, _, err = svc.JoinRoomByName("missing", "u2", "")
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func TestRoomService_LeaveRoom(t *testing.T) {
	req := require.New(t)
	svc := testRoomService(t)

	created, _, err := svc.CreateRoom("Leavers", "", "u1", true, "")
	req.NoError(err)
	_, _, err = svc.JoinRoom(created.ID, "u2", "")
	req.NoError(err)

	view, events, err := svc.LeaveRoom(created.ID, "u2")
	req.NoError(err)
	req.Equal(1, view.MemberCount)
	req.Len(events, 1)
	req.Equal("UserLeft", events[0].Name())

	_, _, err = svc.LeaveRoom(created.ID, "u2")
	req.ErrorIs(err, errors.ErrNotInRoom)
}

func TestRoomService_EnsureLobby(t *testing.T) {
	req := require.New(t)
	svc := testRoomService(t)

	lobby, err := svc.EnsureLobby()
	req.NoError(err)
	req.Equal(domain.LobbyRoomID, lobby.ID)
	req.Equal(0, lobby.MemberCount)
}
