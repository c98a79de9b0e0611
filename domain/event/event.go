// Package event defines the closed set of domain events emitted by the
// aggregates. Consumers dispatch with a type switch; the set is not
// meant to be extended outside this package.
package event

import (
	"time"

	"github.com/google/uuid"
)

type DomainEvent interface {
	Name() string
	OccurredAt() time.Time
}

type base struct {
	At time.Time
}

func (b base) OccurredAt() time.Time { return b.At }

func now() base { return base{At: time.Now().UTC()} }

// ==================== User events ====================

type UserRegistered struct {
	base
	UserID      string
	UserName    string
	DisplayName string
}

func NewUserRegistered(userID, userName, displayName string) UserRegistered {
	return UserRegistered{base: now(), UserID: userID, UserName: userName, DisplayName: displayName}
}

func (UserRegistered) Name() string { return "UserRegistered" }

type UserLoggedIn struct {
	base
	UserID   string
	UserName string
}

func NewUserLoggedIn(userID, userName string) UserLoggedIn {
	return UserLoggedIn{base: now(), UserID: userID, UserName: userName}
}

func (UserLoggedIn) Name() string { return "UserLoggedIn" }

type DisplayNameChanged struct {
	base
	UserID         string
	OldDisplayName string
	NewDisplayName string
}

func NewDisplayNameChanged(userID, oldName, newName string) DisplayNameChanged {
	return DisplayNameChanged{base: now(), UserID: userID, OldDisplayName: oldName, NewDisplayName: newName}
}

func (DisplayNameChanged) Name() string { return "DisplayNameChanged" }

// ==================== Room events ====================

type RoomCreated struct {
	base
	RoomID   string
	RoomName string
	OwnerID  string
	IsPublic bool
}

func NewRoomCreated(roomID, roomName, ownerID string, isPublic bool) RoomCreated {
	return RoomCreated{base: now(), RoomID: roomID, RoomName: roomName, OwnerID: ownerID, IsPublic: isPublic}
}

func (RoomCreated) Name() string { return "RoomCreated" }

type UserJoined struct {
	base
	UserID string
	RoomID string
}

func NewUserJoined(userID, roomID string) UserJoined {
	return UserJoined{base: now(), UserID: userID, RoomID: roomID}
}

func (UserJoined) Name() string { return "UserJoined" }

type UserLeft struct {
	base
	UserID string
	RoomID string
}

func NewUserLeft(userID, roomID string) UserLeft {
	return UserLeft{base: now(), UserID: userID, RoomID: roomID}
}

func (UserLeft) Name() string { return "UserLeft" }

// ==================== Message events ====================

type MessageSent struct {
	base
	MessageID uuid.UUID
	UserID    string
	UserName  string
	RoomID    string
	Content   string
	Type      string
}

func NewMessageSent(messageID uuid.UUID, userID, userName, roomID, content, msgType string) MessageSent {
	return MessageSent{base: now(), MessageID: messageID, UserID: userID, UserName: userName,
		RoomID: roomID, Content: content, Type: msgType}
}

func (MessageSent) Name() string { return "MessageSent" }

// RoomUserListUpdated tells subscribed sessions to refresh the member
// list of a room after a join, leave, or display-name change.
type RoomUserListUpdated struct {
	base
	RoomID    string
	MemberIDs []string
}

func NewRoomUserListUpdated(roomID string, memberIDs []string) RoomUserListUpdated {
	return RoomUserListUpdated{base: now(), RoomID: roomID, MemberIDs: memberIDs}
}

func (RoomUserListUpdated) Name() string { return "RoomUserListUpdated" }
