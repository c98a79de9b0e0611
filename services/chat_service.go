package services

import (
	"context"
	"log/slog"
	"strings"

	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/queue"
	"chat-hub/repositories"
)

// Censor rewrites forbidden fragments of a message body.
type Censor interface {
	Censor(original string) string
}

// SendMessageCommand carries everything the pipeline needs. Timestamps
// are never taken from the client.
type SendMessageCommand struct {
	UserID      string
	UserName    string
	DisplayName string
	RoomID      string
	Content     string
	Type        string
	MediaURL    string
	AltText     string
}

type IChatService interface {
	SendMessage(ctx context.Context, cmd SendMessageCommand) (*domain.Message, error)
	GetRoomMessages(roomID string, count int) ([]domain.Message, error)
	GetRecentMessages(count int) ([]domain.Message, error)
	GetRoomMessageCount(roomID string) (int, error)
}

// ChatService is the message pipeline: validate, authorize, censor,
// stamp, queue for persistence, broadcast. Broadcast does not wait for
// the write; losing durability on a crash is preferred over delaying
// every message by a disk write.
type ChatService struct {
	log        *slog.Logger
	rooms      repositories.IRoomRepository
	messages   repositories.IMessageRepository
	queue      queue.Queue
	dispatcher contract.IDispatcher
	censor     Censor
}

func NewChatService(log *slog.Logger, rooms repositories.IRoomRepository,
	messages repositories.IMessageRepository, q queue.Queue,
	dispatcher contract.IDispatcher, censor Censor) *ChatService {
	return &ChatService{
		log:        log,
		rooms:      rooms,
		messages:   messages,
		queue:      q,
		dispatcher: dispatcher,
		censor:     censor,
	}
}

// SendMessage runs the pipeline. A whitespace-only body is dropped
// silently: the client gets no message and no error, matching the
// behavior of every step being a no-op.
func (s *ChatService) SendMessage(ctx context.Context, cmd SendMessageCommand) (*domain.Message, error) {
	if strings.TrimSpace(cmd.Content) == "" {
		return nil, nil
	}

	room, err := s.rooms.GetByID(cmd.RoomID)
	if err != nil {
		return nil, err
	}

	// Everyone may talk in the lobby without joining it first.
	if room.ID != domain.LobbyRoomID && !room.ContainsMember(cmd.UserID) {
		return nil, errors.ErrNotInRoom
	}

	content := cmd.Content
	if s.censor != nil {
		content = s.censor.Censor(content)
	}

	msgType := domain.ParseMessageType(cmd.Type)
	if cmd.MediaURL != "" && msgType == domain.MessageTypeText {
		msgType = domain.InferMediaType(cmd.MediaURL)
	}

	msg := domain.NewMessage(cmd.UserID, cmd.UserName, cmd.DisplayName,
		room.ID, content, msgType, cmd.MediaURL, cmd.AltText)

	// Durability is best effort: a failed enqueue loses the write but
	// the room still sees the message.
	if err := s.queue.Enqueue(ctx, msg); err != nil {
		s.log.Error("message enqueue failed, broadcast only",
			"messageId", msg.ID, "roomId", msg.RoomID, "error", err)
	}

	s.dispatcher.Publish(room.ID, event.NewMessageSent(
		msg.ID, msg.UserID, msg.UserName, msg.RoomID, msg.Content, msg.Type.String()))

	return &msg, nil
}

func (s *ChatService) GetRoomMessages(roomID string, count int) ([]domain.Message, error) {
	if _, err := s.rooms.GetByID(roomID); err != nil {
		return nil, err
	}
	return s.messages.GetRoomMessages(roomID, count)
}

func (s *ChatService) GetRecentMessages(count int) ([]domain.Message, error) {
	return s.messages.GetRecentMessages(count)
}

func (s *ChatService) GetRoomMessageCount(roomID string) (int, error) {
	return s.messages.GetRoomMessageCount(roomID)
}
