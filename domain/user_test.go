package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"chat-hub/domain/event"
	"chat-hub/errors"

	"github.com/stretchr/testify/require"
)

func TestNewUser_Defaults(t *testing.T) {
	req := require.New(t)

	user, err := NewUser("alice", "secret1", "")
	req.NoError(err)
	req.Equal("alice", user.UserName)
	req.Equal("alice", user.DisplayName)
	req.NotEmpty(user.PasswordHash)
	req.True(user.VerifyPassword("secret1"))
	req.False(user.VerifyPassword("secret2"))

	events := user.FlushEvents()
	req.Len(events, 1)
	_, ok := events[0].(event.UserRegistered)
	req.True(ok)
}

func TestNewUser_Validation(t *testing.T) {
	req := require.New(t)

	_, err := NewUser("al", "secret1", "")
	req.True(errors.IsValidation(err))

	_, err = NewUser("alice", "123", "")
	req.True(errors.IsValidation(err))

	_, err = NewUser("alice", "secret1", "a display name that is way way too long for us")
	req.True(errors.IsValidation(err))
}

func TestNewUser_MultibyteNamesCountRunes(t *testing.T) {
	req := require.New(t)

	// 3 runes but 9 bytes: within the 3-20 window.
	user, err := NewUser("张三丰", "secret1", "")
	req.NoError(err)
	req.Equal("张三丰", user.UserName)

	// 15 runes but 45 bytes: within the 30-rune display name cap.
	user, err = NewUser("alice", "secret1", strings.Repeat("聊", 15))
	req.NoError(err)
	req.Equal(15, utf8.RuneCountInString(user.DisplayName))

	_, err = NewUser("alice", "secret1", strings.Repeat("聊", 31))
	req.True(errors.IsValidation(err))
}

func TestUser_Login(t *testing.T) {
	req := require.New(t)

	user, err := NewUser("alice", "secret1", "")
	req.NoError(err)
	user.FlushEvents()

	req.True(user.LastLoginAt.IsZero())
	user.Login()
	req.False(user.LastLoginAt.IsZero())

	events := user.FlushEvents()
	req.Len(events, 1)
	_, ok := events[0].(event.UserLoggedIn)
	req.True(ok)
}

func TestUser_ChangeDisplayName(t *testing.T) {
	req := require.New(t)

	user, err := NewUser("alice", "secret1", "")
	req.NoError(err)
	user.FlushEvents()

	req.NoError(user.ChangeDisplayName("Alice in Wonderland"))
	req.Equal("Alice in Wonderland", user.DisplayName)

	req.Error(user.ChangeDisplayName("   "))

	events := user.FlushEvents()
	req.Len(events, 1)
	changed, ok := events[0].(event.DisplayNameChanged)
	req.True(ok)
	req.Equal("alice", changed.OldDisplayName)
}

func TestUser_ChangeDisplayName_TruncatesOnRuneBoundary(t *testing.T) {
	req := require.New(t)

	user, err := NewUser("alice", "secret1", "")
	req.NoError(err)
	user.FlushEvents()

	// 31 runes of mixed ASCII and CJK: cut to 30 whole runes, never
	// mid-sequence.
	req.NoError(user.ChangeDisplayName("a" + strings.Repeat("聊", 30)))
	req.Equal(MaxDisplayNameLength, utf8.RuneCountInString(user.DisplayName))
	req.True(utf8.ValidString(user.DisplayName))
	req.Equal("a"+strings.Repeat("聊", 29), user.DisplayName)
}
