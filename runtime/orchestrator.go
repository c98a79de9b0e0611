// Package runtime owns session lifecycle, event fan-out, and worker
// supervision. Business rules live in the domain and service layers;
// this package only coordinates them.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/queue"
	"chat-hub/services"
)

// SessionOrchestrator is the single entry point the transport layer
// talks to. It tracks which session is who, routes operations to the
// services, and turns their domain events into broadcasts.
type SessionOrchestrator struct {
	mu    sync.Mutex
	sinks map[string]contract.EventSink

	log        *slog.Logger
	registry   *ConnectionRegistry
	dispatcher contract.IDispatcher
	supervisor contract.ISupervisor
	workers    []contract.Worker
	observers  []contract.EventSink

	auth  services.IAuthService
	rooms services.IRoomService
	chat  services.IChatService
	queue queue.Queue
}

func NewSessionOrchestrator(log *slog.Logger, registry *ConnectionRegistry,
	dispatcher contract.IDispatcher, supervisor contract.ISupervisor,
	auth services.IAuthService, rooms services.IRoomService,
	chat services.IChatService, q queue.Queue) *SessionOrchestrator {
	return &SessionOrchestrator{
		sinks:      make(map[string]contract.EventSink),
		log:        log,
		registry:   registry,
		dispatcher: dispatcher,
		supervisor: supervisor,
		auth:       auth,
		rooms:      rooms,
		chat:       chat,
		queue:      q,
	}
}

// AddWorker registers a background worker to run under supervision
// when Start is called.
func (o *SessionOrchestrator) AddWorker(workers ...contract.Worker) {
	o.workers = append(o.workers, workers...)
}

// AddObserver attaches a passive sink that sees every broadcast,
// regardless of room. Used for projections and telemetry.
func (o *SessionOrchestrator) AddObserver(sinks ...contract.EventSink) {
	o.observers = append(o.observers, sinks...)
}

// Start bootstraps the lobby and blocks running the supervised
// workers until ctx is cancelled or Stop is called.
func (o *SessionOrchestrator) Start(ctx context.Context) error {
	lobby, err := o.rooms.EnsureLobby()
	if err != nil {
		return err
	}
	o.log.Info("lobby ready", "roomId", lobby.ID)

	o.supervisor.Add(o.workers...)
	o.log.Info("starting supervised workers", "count", len(o.workers))
	o.supervisor.Run(ctx)
	return nil
}

func (o *SessionOrchestrator) Stop() {
	o.log.Info("orchestrator shutdown requested")
	o.supervisor.Stop()
}

// ==================== Session lifecycle ====================

// Connect registers a fresh connection and its outbound sink. The
// session starts unauthenticated and subscribed to nothing.
func (o *SessionOrchestrator) Connect(sessionID string, sink contract.EventSink) {
	o.registry.Add(sessionID)
	// Attached from the first moment so global announcements (room
	// creation) reach sessions that joined nothing yet.
	o.dispatcher.Attach(sessionID, sink)

	o.mu.Lock()
	o.sinks[sessionID] = sink
	o.mu.Unlock()

	o.log.Info("session connected", "sessionId", sessionID)
}

// Disconnect drops the session from every room it listened to. Room
// membership is durable and survives the disconnect.
func (o *SessionOrchestrator) Disconnect(sessionID string) {
	o.dispatcher.DropSession(sessionID)
	o.registry.Remove(sessionID)

	o.mu.Lock()
	delete(o.sinks, sessionID)
	o.mu.Unlock()

	o.log.Info("session disconnected", "sessionId", sessionID)
}

func (o *SessionOrchestrator) Register(sessionID, userName, password, displayName string) (*services.Session, error) {
	session, events, err := o.auth.Register(userName, password, displayName)
	if err != nil {
		return nil, err
	}
	o.bindSession(sessionID, session.User)
	o.broadcast("", events)
	return session, nil
}

func (o *SessionOrchestrator) Login(sessionID, userName, password string) (*services.Session, error) {
	session, events, err := o.auth.Login(userName, password)
	if err != nil {
		return nil, err
	}
	o.bindSession(sessionID, session.User)
	o.broadcast("", events)
	return session, nil
}

// Logout reverts the session to anonymous but keeps the connection
// and its lobby subscription alive.
func (o *SessionOrchestrator) Logout(sessionID string) {
	o.registry.ClearUser(sessionID)
}

// SetDisplayName updates the profile and tells every room the user is
// in to refresh its member list.
func (o *SessionOrchestrator) SetDisplayName(sessionID, displayName string) (*services.UserProfile, error) {
	userID, err := o.authenticated(sessionID)
	if err != nil {
		return nil, err
	}

	profile, events, err := o.auth.SetDisplayName(userID, displayName)
	if err != nil {
		return nil, err
	}
	o.registry.SetDisplayName(userID, profile.DisplayName)

	userRooms, err := o.rooms.GetUserRooms(userID)
	if err != nil {
		return nil, err
	}
	for _, room := range userRooms {
		o.broadcast(room.ID, events)
		o.publish(room.ID, event.NewRoomUserListUpdated(room.ID, room.MemberIDs))
	}
	return profile, nil
}

// ==================== Rooms ====================

func (o *SessionOrchestrator) CreateRoom(sessionID, name, description string, isPublic bool, password string) (*services.RoomView, error) {
	userID, err := o.authenticated(sessionID)
	if err != nil {
		return nil, err
	}

	view, events, err := o.rooms.CreateRoom(name, description, userID, isPublic, password)
	if err != nil {
		return nil, err
	}

	o.subscribe(sessionID, view.ID)
	// Room creation is announced to everyone so lists refresh; the
	// owner's implicit join stays inside the room.
	for _, e := range events {
		if _, ok := e.(event.RoomCreated); ok {
			o.publishAll(e)
			continue
		}
		o.publish(view.ID, e)
	}
	return view, nil
}

func (o *SessionOrchestrator) JoinRoom(ctx context.Context, sessionID, roomID, password string) (*services.RoomView, error) {
	userID, err := o.authenticated(sessionID)
	if err != nil {
		return nil, err
	}

	view, events, err := o.rooms.JoinRoom(roomID, userID, password)
	if err != nil {
		return nil, err
	}
	o.afterMembershipChange(ctx, sessionID, userID, view, events, true)
	return view, nil
}

func (o *SessionOrchestrator) JoinRoomByName(ctx context.Context, sessionID, name, password string) (*services.RoomView, error) {
	userID, err := o.authenticated(sessionID)
	if err != nil {
		return nil, err
	}

	view, events, err := o.rooms.JoinRoomByName(name, userID, password)
	if err != nil {
		return nil, err
	}
	o.afterMembershipChange(ctx, sessionID, userID, view, events, true)
	return view, nil
}

func (o *SessionOrchestrator) LeaveRoom(ctx context.Context, sessionID, roomID string) error {
	userID, err := o.authenticated(sessionID)
	if err != nil {
		return err
	}

	view, events, err := o.rooms.LeaveRoom(roomID, userID)
	if err != nil {
		return err
	}
	o.afterMembershipChange(ctx, sessionID, userID, view, events, false)
	return nil
}

func (o *SessionOrchestrator) GetRooms() ([]services.RoomView, error) {
	return o.rooms.GetPublicRooms()
}

func (o *SessionOrchestrator) GetMyRooms(sessionID string) ([]services.RoomView, error) {
	userID, err := o.authenticated(sessionID)
	if err != nil {
		return nil, err
	}
	return o.rooms.GetUserRooms(userID)
}

func (o *SessionOrchestrator) SearchRooms(substring string) ([]services.RoomView, error) {
	return o.rooms.SearchRooms(substring)
}

// ==================== Messages ====================

func (o *SessionOrchestrator) SendMessage(ctx context.Context, sessionID, roomID, content, msgType, mediaURL, altText string) (*domain.Message, error) {
	userID, err := o.authenticated(sessionID)
	if err != nil {
		return nil, err
	}

	profile, err := o.auth.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	return o.chat.SendMessage(ctx, services.SendMessageCommand{
		UserID:      userID,
		UserName:    profile.UserName,
		DisplayName: profile.DisplayName,
		RoomID:      roomID,
		Content:     content,
		Type:        msgType,
		MediaURL:    mediaURL,
		AltText:     altText,
	})
}

func (o *SessionOrchestrator) GetRoomMessages(sessionID, roomID string, count int) ([]domain.Message, error) {
	if _, err := o.authenticated(sessionID); err != nil {
		return nil, err
	}
	return o.chat.GetRoomMessages(roomID, count)
}

func (o *SessionOrchestrator) GetRecentMessages(sessionID string, count int) ([]domain.Message, error) {
	if _, err := o.authenticated(sessionID); err != nil {
		return nil, err
	}
	return o.chat.GetRecentMessages(count)
}

// ==================== Internals ====================

func (o *SessionOrchestrator) authenticated(sessionID string) (string, error) {
	userID := o.registry.UserID(sessionID)
	if userID == "" {
		return "", errors.ErrNotAuthenticated
	}
	return userID, nil
}

// bindSession attaches the authenticated identity and subscribes the
// session to the lobby, which requires no membership.
func (o *SessionOrchestrator) bindSession(sessionID string, user services.UserProfile) {
	if !o.registry.SetUser(sessionID, user.ID, user.DisplayName) {
		// The credentials were valid but the connection is gone (or
		// never called Connect); the token holder stays anonymous.
		o.log.Warn("authenticated an unknown session, binding skipped",
			"sessionId", sessionID, "userId", user.ID)
		return
	}
	o.subscribe(sessionID, domain.LobbyRoomID)
}

func (o *SessionOrchestrator) subscribe(sessionID, roomID string) {
	o.mu.Lock()
	sink, ok := o.sinks[sessionID]
	o.mu.Unlock()
	if ok {
		o.dispatcher.Subscribe(sessionID, roomID, sink)
	}
}

// afterMembershipChange wires the session in or out of the room's
// broadcast stream, then announces the change: the domain events, a
// persisted system notice, and a member-list refresh.
func (o *SessionOrchestrator) afterMembershipChange(ctx context.Context, sessionID, userID string,
	view *services.RoomView, events []event.DomainEvent, joined bool) {
	if joined {
		o.subscribe(sessionID, view.ID)
	} else {
		o.dispatcher.Unsubscribe(sessionID, view.ID)
	}

	o.broadcast(view.ID, events)

	name := o.registry.DisplayName(sessionID)
	if name == "" {
		name = userID
	}
	verb := "joined"
	if !joined {
		verb = "left"
	}
	o.systemNotice(ctx, view.ID, fmt.Sprintf("%s %s the room", name, verb))
	o.publish(view.ID, event.NewRoomUserListUpdated(view.ID, view.MemberIDs))
}

// systemNotice persists and broadcasts a server-authored message so
// join/leave history survives restarts.
func (o *SessionOrchestrator) systemNotice(ctx context.Context, roomID, content string) {
	msg := domain.NewSystemMessage(roomID, content)
	if err := o.queue.Enqueue(ctx, msg); err != nil {
		o.log.Error("system notice enqueue failed", "roomId", roomID, "error", err)
	}
	o.publish(roomID, event.NewMessageSent(
		msg.ID, msg.UserID, msg.UserName, msg.RoomID, msg.Content, msg.Type.String()))
}

func (o *SessionOrchestrator) broadcast(roomID string, events []event.DomainEvent) {
	for _, e := range events {
		if roomID == "" {
			o.observe(e)
			continue
		}
		o.publish(roomID, e)
	}
}

func (o *SessionOrchestrator) publish(roomID string, e event.DomainEvent) {
	o.dispatcher.Publish(roomID, e)
	o.observe(e)
}

func (o *SessionOrchestrator) publishAll(e event.DomainEvent) {
	o.dispatcher.PublishAll(e)
	o.observe(e)
}

// observe feeds passive sinks outside any room scope.
func (o *SessionOrchestrator) observe(e event.DomainEvent) {
	for _, sink := range o.observers {
		if err := sink.Consume(context.Background(), e); err != nil {
			o.log.Debug("observer rejected event", "event", e.Name(), "error", err)
		}
	}
}
