package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"chat-hub/auth"
	"chat-hub/domain/event"
	"chat-hub/errors"

	"github.com/google/uuid"
)

const (
	MinUserNameLength    = 3
	MaxUserNameLength    = 20
	MaxDisplayNameLength = 30
)

// User is the account aggregate. Uniqueness of UserName (case
// insensitive) is enforced at the repository boundary, not here.
type User struct {
	ID           string
	UserName     string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	LastLoginAt  time.Time

	outbox []event.DomainEvent
}

// NewUser hashes the password and registers the account. DisplayName
// defaults to the username when absent.
func NewUser(userName, password, displayName string) (*User, error) {
	userName = strings.TrimSpace(userName)
	// Limits count runes, not bytes, so multibyte names get the full
	// width.
	if n := utf8.RuneCountInString(userName); n < MinUserNameLength || n > MaxUserNameLength {
		return nil, errors.NewValidation("username", "length must be between 3 and 20 characters")
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = userName
	}
	if utf8.RuneCountInString(displayName) > MaxDisplayNameLength {
		return nil, errors.NewValidation("display name", "must not exceed 30 characters")
	}

	pw, err := auth.NewPassword(password)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.NewString(),
		UserName:     userName,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	user.outbox = append(user.outbox, event.NewUserRegistered(user.ID, user.UserName, user.DisplayName))
	return user, nil
}

func (u *User) VerifyPassword(candidate string) bool {
	pw, err := auth.NewPassword(candidate)
	if err != nil {
		return false
	}
	return auth.ComparePassword(pw, u.PasswordHash)
}

// Login stamps the last login time.
func (u *User) Login() {
	u.LastLoginAt = time.Now().UTC()
	u.outbox = append(u.outbox, event.NewUserLoggedIn(u.ID, u.UserName))
}

func (u *User) ChangeDisplayName(displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return errors.NewValidation("display name", "must not be empty")
	}
	if r := []rune(displayName); len(r) > MaxDisplayNameLength {
		displayName = string(r[:MaxDisplayNameLength])
	}
	old := u.DisplayName
	u.DisplayName = displayName
	u.outbox = append(u.outbox, event.NewDisplayNameChanged(u.ID, old, displayName))
	return nil
}

func (u *User) FlushEvents() []event.DomainEvent {
	out := u.outbox
	u.outbox = nil
	return out
}
