package runtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-hub/auth"
	"chat-hub/errors"
	"chat-hub/queue"
	"chat-hub/repositories"
	"chat-hub/runtime/workers"
	"chat-hub/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

type orchestratorFixture struct {
	orch  *SessionOrchestrator
	queue *queue.MemoryQueue
	rooms repositories.IRoomRepository
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.DiscardHandler)
	users := repositories.NewUserRepository(db)
	rooms := repositories.NewRoomRepository(db)
	messages := repositories.NewMessageRepository(db)
	q := queue.NewMemoryQueue(64)

	registry := NewConnectionRegistry()
	dispatcher := NewBroadcastDispatcher(log)
	supervisor := workers.NewSupervisor(log)

	issuer := auth.NewTokenIssuer([]byte("test-signing-key"), time.Hour)
	authSvc := services.NewAuthService(users, issuer)
	roomSvc := services.NewRoomService(rooms)
	chatSvc := services.NewChatService(log, rooms, messages, q, dispatcher, nil)

	orch := NewSessionOrchestrator(log, registry, dispatcher, supervisor, authSvc, roomSvc, chatSvc, q)

	_, err = rooms.EnsureLobbyExists()
	require.NoError(t, err)

	return &orchestratorFixture{orch: orch, queue: q, rooms: rooms}
}

// connectAndRegister gives back a session id with a live sink.
func (f *orchestratorFixture) connectAndRegister(t *testing.T, sessionID, userName string) (*services.Session, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	f.orch.Connect(sessionID, sink)
	session, err := f.orch.Register(sessionID, userName, "secret1", "")
	require.NoError(t, err)
	return session, sink
}

func TestOrchestrator_UnauthenticatedOperationsFail(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	f.orch.Connect("s1", &recordingSink{})

	_, err := f.orch.CreateRoom("s1", "Room", "", true, "")
	req.ErrorIs(err, errors.ErrNotAuthenticated)

	_, err = f.orch.SendMessage(context.Background(), "s1", "lobby", "hi", "", "", "")
	req.ErrorIs(err, errors.ErrNotAuthenticated)

	_, err = f.orch.GetMyRooms("s1")
	req.ErrorIs(err, errors.ErrNotAuthenticated)
}

func TestOrchestrator_RegisterBindsSession(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	session, _ := f.connectAndRegister(t, "s1", "alice")
	req.NotEmpty(session.Token)

	rooms, err := f.orch.GetMyRooms("s1")
	req.NoError(err)
	req.Empty(rooms)
}

func TestOrchestrator_LogoutRevertsToAnonymous(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	f.connectAndRegister(t, "s1", "alice")
	f.orch.Logout("s1")

	_, err := f.orch.GetMyRooms("s1")
	req.ErrorIs(err, errors.ErrNotAuthenticated)
}

func TestOrchestrator_JoinBroadcastsToMembers(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	_, ownerSink := f.connectAndRegister(t, "s1", "alice")
	f.connectAndRegister(t, "s2", "bob")

	view, err := f.orch.CreateRoom("s1", "Shared", "", true, "")
	req.NoError(err)

	_, err = f.orch.JoinRoom(context.Background(), "s2", view.ID, "")
	req.NoError(err)

	// The owner sees the join, the persisted notice, and the member
	// list refresh.
	names := ownerSink.names()
	req.Contains(names, "UserJoined")
	req.Contains(names, "MessageSent")
	req.Contains(names, "RoomUserListUpdated")
}

func TestOrchestrator_RoomCreationAnnouncedToIdleSessions(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	f.connectAndRegister(t, "s1", "alice")

	// A freshly connected session that never authenticated or joined a
	// room still hears the announcement, so its room list can refresh.
	idleSink := &recordingSink{}
	f.orch.Connect("s2", idleSink)

	_, err := f.orch.CreateRoom("s1", "Announced", "", true, "")
	req.NoError(err)

	req.Contains(idleSink.names(), "RoomCreated")
}

func TestOrchestrator_SendMessageReachesRoom(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	_, ownerSink := f.connectAndRegister(t, "s1", "alice")
	f.connectAndRegister(t, "s2", "bob")

	view, err := f.orch.CreateRoom("s1", "Talk", "", true, "")
	req.NoError(err)
	_, err = f.orch.JoinRoom(context.Background(), "s2", view.ID, "")
	req.NoError(err)

	msg, err := f.orch.SendMessage(context.Background(), "s2", view.ID, "hello", "", "", "")
	req.NoError(err)
	req.NotNil(msg)
	req.Equal("bob", msg.UserName)

	req.Contains(ownerSink.names(), "MessageSent")
	// Queued for the persistence worker as well.
	req.Greater(f.queue.Len(), 0)
}

func TestOrchestrator_LeaveStopsDelivery(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	_, _ = f.connectAndRegister(t, "s1", "alice")
	_, memberSink := f.connectAndRegister(t, "s2", "bob")

	view, err := f.orch.CreateRoom("s1", "Transient", "", true, "")
	req.NoError(err)
	_, err = f.orch.JoinRoom(context.Background(), "s2", view.ID, "")
	req.NoError(err)

	req.NoError(f.orch.LeaveRoom(context.Background(), "s2", view.ID))
	before := len(memberSink.names())

	_, err = f.orch.SendMessage(context.Background(), "s1", view.ID, "anyone there?", "", "", "")
	req.NoError(err)
	req.Len(memberSink.names(), before)
}

func TestOrchestrator_DisconnectKeepsMembership(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	_, _ = f.connectAndRegister(t, "s1", "alice")
	session, _ := f.connectAndRegister(t, "s2", "bob")

	view, err := f.orch.CreateRoom("s1", "Durable", "", true, "")
	req.NoError(err)
	_, err = f.orch.JoinRoom(context.Background(), "s2", view.ID, "")
	req.NoError(err)

	f.orch.Disconnect("s2")

	// Bob is offline but still a member.
	rooms, err := f.rooms.GetUserRooms(session.User.ID)
	req.NoError(err)
	req.Len(rooms, 1)
	req.True(rooms[0].ContainsMember(session.User.ID))
}

func TestOrchestrator_StartBootsLobbyAndStops(t *testing.T) {
	req := require.New(t)
	f := newOrchestratorFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.orch.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	f.orch.Stop()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("orchestrator did not stop")
	}

	views, err := f.orch.GetRooms()
	req.NoError(err)
	names := lo.Map(views, func(v services.RoomView, _ int) string { return v.Name })
	req.Contains(names, "Lobby")
}
