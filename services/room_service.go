package services

import (
	"time"

	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/repositories"

	"github.com/samber/lo"
)

// RoomView is the outward-facing room representation. The password
// hash stays inside the domain.
type RoomView struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	IsPublic    bool
	MemberCount int
	CreatedAt   time.Time
	MemberIDs   []string
}

type IRoomService interface {
	CreateRoom(name, description, ownerID string, isPublic bool, password string) (*RoomView, []event.DomainEvent, error)
	JoinRoom(roomID, userID, password string) (*RoomView, []event.DomainEvent, error)
	JoinRoomByName(name, userID, password string) (*RoomView, []event.DomainEvent, error)
	LeaveRoom(roomID, userID string) (*RoomView, []event.DomainEvent, error)
	GetRoom(roomID string) (*RoomView, error)
	GetPublicRooms() ([]RoomView, error)
	GetUserRooms(userID string) ([]RoomView, error)
	SearchRooms(substring string) ([]RoomView, error)
	EnsureLobby() (*RoomView, error)
}

type RoomService struct {
	rooms repositories.IRoomRepository
}

func NewRoomService(rooms repositories.IRoomRepository) IRoomService {
	return &RoomService{rooms: rooms}
}

func (s *RoomService) CreateRoom(name, description, ownerID string, isPublic bool, password string) (*RoomView, []event.DomainEvent, error) {
	room, err := domain.NewRoom(name, description, ownerID, isPublic, password)
	if err != nil {
		return nil, nil, err
	}
	events := room.FlushEvents()
	if err := s.rooms.Add(room); err != nil {
		return nil, nil, err
	}
	view := toRoomView(room)
	return &view, events, nil
}

// JoinRoom checks the password before touching membership. Private
// rooms distinguish a missing password from a wrong one so clients can
// prompt instead of erroring.
func (s *RoomService) JoinRoom(roomID, userID, password string) (*RoomView, []event.DomainEvent, error) {
	var events []event.DomainEvent
	room, err := s.rooms.Mutate(roomID, func(room *domain.Room) error {
		if room.ContainsMember(userID) {
			return errors.ErrAlreadyInRoom
		}
		if !room.IsPublic && password == "" {
			return errors.ErrPasswordRequired
		}
		if !room.VerifyPassword(password) {
			return errors.ErrInvalidPassword
		}
		room.AddMember(userID)
		events = room.FlushEvents()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	view := toRoomView(room)
	return &view, events, nil
}

func (s *RoomService) JoinRoomByName(name, userID, password string) (*RoomView, []event.DomainEvent, error) {
	room, err := s.rooms.GetByName(name)
	if err != nil {
		return nil, nil, err
	}
	return s.JoinRoom(room.ID, userID, password)
}

func (s *RoomService) LeaveRoom(roomID, userID string) (*RoomView, []event.DomainEvent, error) {
	var events []event.DomainEvent
	room, err := s.rooms.Mutate(roomID, func(room *domain.Room) error {
		if !room.ContainsMember(userID) {
			return errors.ErrNotInRoom
		}
		room.RemoveMember(userID)
		events = room.FlushEvents()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	view := toRoomView(room)
	return &view, events, nil
}

func (s *RoomService) GetRoom(roomID string) (*RoomView, error) {
	room, err := s.rooms.GetByID(roomID)
	if err != nil {
		return nil, err
	}
	view := toRoomView(room)
	return &view, nil
}

func (s *RoomService) GetPublicRooms() ([]RoomView, error) {
	rooms, err := s.rooms.GetPublicRooms()
	if err != nil {
		return nil, err
	}
	return toRoomViews(rooms), nil
}

func (s *RoomService) GetUserRooms(userID string) ([]RoomView, error) {
	rooms, err := s.rooms.GetUserRooms(userID)
	if err != nil {
		return nil, err
	}
	return toRoomViews(rooms), nil
}

func (s *RoomService) SearchRooms(substring string) ([]RoomView, error) {
	rooms, err := s.rooms.SearchByName(substring)
	if err != nil {
		return nil, err
	}
	return toRoomViews(rooms), nil
}

// EnsureLobby bootstraps the well-known lobby at startup.
func (s *RoomService) EnsureLobby() (*RoomView, error) {
	room, err := s.rooms.EnsureLobbyExists()
	if err != nil {
		return nil, err
	}
	view := toRoomView(room)
	return &view, nil
}

func toRoomView(room *domain.Room) RoomView {
	return RoomView{
		ID:          room.ID,
		Name:        room.RoomName,
		Description: room.Description,
		OwnerID:     room.OwnerID,
		IsPublic:    room.IsPublic,
		MemberCount: room.MemberCount,
		CreatedAt:   room.CreatedAt,
		MemberIDs:   room.MemberIDs(),
	}
}

func toRoomViews(rooms []*domain.Room) []RoomView {
	return lo.Map(rooms, func(room *domain.Room, _ int) RoomView {
		return toRoomView(room)
	})
}
