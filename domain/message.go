package domain

import (
	"mime"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const MaxMessageLength = 500

// MessageType is a closed enum with a static string table.
type MessageType int

const (
	MessageTypeText MessageType = iota
	MessageTypeImage
	MessageTypeFile
	MessageTypeSystem
)

var messageTypeNames = map[MessageType]string{
	MessageTypeText:   "Text",
	MessageTypeImage:  "Image",
	MessageTypeFile:   "File",
	MessageTypeSystem: "System",
}

var messageTypeValues = map[string]MessageType{
	"Text":   MessageTypeText,
	"Image":  MessageTypeImage,
	"File":   MessageTypeFile,
	"System": MessageTypeSystem,
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "Text"
}

// ParseMessageType falls back to Text for unknown labels; clients may
// send arbitrary strings and a message must never be rejected for its
// type label alone.
func ParseMessageType(s string) MessageType {
	if t, ok := messageTypeValues[s]; ok {
		return t
	}
	return MessageTypeText
}

// InferMediaType classifies a media URL by extension. Anything that
// resolves to an image/* MIME is an Image, any other resolvable type a
// File, otherwise File as the safe default.
func InferMediaType(mediaURL string) MessageType {
	ext := path.Ext(mediaURL)
	if ext == "" {
		return MessageTypeFile
	}
	declared := mime.TypeByExtension(strings.ToLower(ext))
	if declared == "" {
		return MessageTypeFile
	}
	if mt := mimetype.Lookup(declared); mt != nil {
		if strings.HasPrefix(mt.String(), "image/") {
			return MessageTypeImage
		}
	}
	return MessageTypeFile
}

// Message is immutable once created. Timestamps are always assigned by
// the server; client-supplied values are ignored.
type Message struct {
	ID          uuid.UUID
	UserID      string
	UserName    string
	DisplayName string
	RoomID      string
	Content     string
	Type        MessageType
	MediaURL    string
	AltText     string
	Timestamp   time.Time
}

// NewMessage assigns identity and server time. Content longer than 500
// runes is truncated, never rejected.
func NewMessage(userID, userName, displayName, roomID, content string,
	msgType MessageType, mediaURL, altText string) Message {
	if runes := []rune(content); len(runes) > MaxMessageLength {
		content = string(runes[:MaxMessageLength])
	}
	return Message{
		ID:          uuid.New(),
		UserID:      userID,
		UserName:    userName,
		DisplayName: displayName,
		RoomID:      roomID,
		Content:     content,
		Type:        msgType,
		MediaURL:    mediaURL,
		AltText:     altText,
		Timestamp:   time.Now().UTC(),
	}
}

// NewSystemMessage builds a join/leave notice signed by the system user.
func NewSystemMessage(roomID, content string) Message {
	return Message{
		ID:        uuid.New(),
		UserID:    SystemUserID,
		UserName:  SystemUserID,
		RoomID:    roomID,
		Content:   content,
		Type:      MessageTypeSystem,
		Timestamp: time.Now().UTC(),
	}
}
