package domain

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"chat-hub/auth"
	"chat-hub/domain/event"
	"chat-hub/errors"

	"github.com/google/uuid"
)

const (
	// LobbyRoomID is the well-known public room that always exists.
	LobbyRoomID = "lobby"
	// SystemUserID owns the lobby and signs system notices.
	SystemUserID = "system"

	MinRoomNameLength    = 2
	MaxRoomNameLength    = 50
	MaxDescriptionLength = 200
)

// Room is the aggregate owning membership. All membership mutation on
// one room instance is serialized by its own mutex; the repository
// additionally serializes the read-modify-write cycle per room id so
// two sessions joining concurrently cannot lose an update.
type Room struct {
	mu sync.Mutex

	ID           string
	RoomName     string
	Description  string
	OwnerID      string
	IsPublic     bool
	PasswordHash string
	CreatedAt    time.Time
	MemberCount  int

	members map[string]struct{}
	outbox  []event.DomainEvent
}

// NewRoom validates and creates a room. The owner joins immediately.
// A private room must carry a password; a public one never does.
func NewRoom(name, description, ownerID string, isPublic bool, password string) (*Room, error) {
	name = strings.TrimSpace(name)
	// Limits count runes, not bytes, so multibyte names get the full
	// width.
	if n := utf8.RuneCountInString(name); n < MinRoomNameLength || n > MaxRoomNameLength {
		return nil, errors.NewValidation("room name", "length must be between 2 and 50 characters")
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return nil, errors.NewValidation("room description", "must not exceed 200 characters")
	}

	var passwordHash string
	if !isPublic {
		pw, err := auth.NewPassword(password)
		if err != nil {
			return nil, err
		}
		passwordHash, err = auth.HashPassword(pw)
		if err != nil {
			return nil, err
		}
	}

	room := &Room{
		ID:           uuid.NewString(),
		RoomName:     name,
		Description:  description,
		OwnerID:      ownerID,
		IsPublic:     isPublic,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
		MemberCount:  1,
		members:      map[string]struct{}{ownerID: {}},
	}
	room.outbox = append(room.outbox,
		event.NewRoomCreated(room.ID, room.RoomName, ownerID, isPublic),
		event.NewUserJoined(ownerID, room.ID),
	)
	return room, nil
}

// NewLobby builds the always-present public room. It starts with no
// members; users subscribe to it without joining.
func NewLobby() *Room {
	return &Room{
		ID:          LobbyRoomID,
		RoomName:    "Lobby",
		Description: "Public lobby, open to everyone",
		OwnerID:     SystemUserID,
		IsPublic:    true,
		CreatedAt:   time.Now().UTC(),
		members:     make(map[string]struct{}),
	}
}

// Reconstitute rebuilds a room from its persisted record without
// emitting events.
func Reconstitute(id, name, description, ownerID string, isPublic bool,
	passwordHash string, createdAt time.Time, memberIDs []string) *Room {
	members := make(map[string]struct{}, len(memberIDs))
	for _, m := range memberIDs {
		members[m] = struct{}{}
	}
	return &Room{
		ID:           id,
		RoomName:     name,
		Description:  description,
		OwnerID:      ownerID,
		IsPublic:     isPublic,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
		MemberCount:  len(members),
		members:      members,
	}
}

// AddMember is idempotent: re-adding an existing member changes nothing
// and emits no event.
func (r *Room) AddMember(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[userID]; ok {
		return
	}
	r.members[userID] = struct{}{}
	r.MemberCount++
	r.outbox = append(r.outbox, event.NewUserJoined(userID, r.ID))
}

// RemoveMember is idempotent: removing an absent member is a no-op.
func (r *Room) RemoveMember(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[userID]; !ok {
		return
	}
	delete(r.members, userID)
	if r.MemberCount > 0 {
		r.MemberCount--
	}
	r.outbox = append(r.outbox, event.NewUserLeft(userID, r.ID))
}

func (r *Room) ContainsMember(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[userID]
	return ok
}

// MemberIDs returns a snapshot of the membership set.
func (r *Room) MemberIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	return ids
}

// VerifyPassword always accepts on public rooms. A private room with an
// empty hash should not exist given the factory invariant, but accepts
// too rather than locking everyone out of a broken record.
func (r *Room) VerifyPassword(candidate string) bool {
	if r.IsPublic || r.PasswordHash == "" {
		return true
	}
	pw, err := auth.NewPassword(candidate)
	if err != nil {
		return false
	}
	return auth.ComparePassword(pw, r.PasswordHash)
}

// FlushEvents drains the aggregate outbox.
func (r *Room) FlushEvents() []event.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.outbox
	r.outbox = nil
	return out
}
