package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"chat-hub/errors"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. Changing them invalidates every stored hash, so
// they are constants rather than configuration.
const (
	SaltLength     = 16
	KeyLength      = 32
	HashIterations = 100_000

	MinPasswordLength = 6
)

// Password is a validated plaintext password. It exists so that the
// "at least 6 characters" rule is enforced once, at construction, for
// both user credentials and private-room passwords.
type Password struct {
	value string
}

func NewPassword(plaintext string) (Password, error) {
	if strings.TrimSpace(plaintext) == "" {
		return Password{}, errors.NewValidation("password", "must not be empty")
	}
	if len(plaintext) < MinPasswordLength {
		return Password{}, errors.NewValidation("password", "must be at least 6 characters")
	}
	return Password{value: plaintext}, nil
}

// String never leaks the plaintext into logs.
func (p Password) String() string { return "[PASSWORD]" }

// HashPassword derives a salted PBKDF2-SHA256 key from the password and
// encodes it as "hex(salt):hex(hash)".
func HashPassword(password Password) (string, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := pbkdf2.Key([]byte(password.value), salt, HashIterations, KeyLength, sha256.New)

	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(hash), nil
}

// ComparePassword recomputes the hash with the stored salt and compares
// in constant time. A malformed stored value is treated as a mismatch,
// never as an error surfaced to the caller.
func ComparePassword(password Password, encodedHash string) bool {
	parts := strings.Split(encodedHash, ":")
	if len(parts) != 2 {
		return false
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	storedHash, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computed := pbkdf2.Key([]byte(password.value), salt, HashIterations, len(storedHash), sha256.New)

	return subtle.ConstantTimeCompare(computed, storedHash) == 1
}
