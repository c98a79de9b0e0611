// Package errors centralizes the sentinel errors of the chat engine.
// Callers match them with errors.Is; the stable identity is the error
// value, not the message.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrRoomNotFound     = fmt.Errorf("room not found")
	ErrUserNotFound     = fmt.Errorf("user not found")
	ErrNotInRoom        = fmt.Errorf("user is not a member of the room")
	ErrAlreadyInRoom    = fmt.Errorf("user is already a member of the room")

	ErrUserAlreadyExists = fmt.Errorf("username already taken")
	ErrRoomAlreadyExists = fmt.Errorf("room name already taken")

	ErrInvalidCredentials = fmt.Errorf("invalid username or password")
	ErrInvalidPassword    = fmt.Errorf("wrong room password")
	ErrPasswordRequired   = fmt.Errorf("room requires a password")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrQueueClosed = fmt.Errorf("queue closed")
)

// Validation wraps a caller-correctable input error (bad length, empty
// field). It unwraps to the underlying cause.
type Validation struct {
	Field string
	Cause error
}

func (v Validation) Error() string {
	return fmt.Sprintf("invalid %s: %v", v.Field, v.Cause)
}

func (v Validation) Unwrap() error { return v.Cause }

func NewValidation(field, msg string) error {
	return Validation{Field: field, Cause: stderrors.New(msg)}
}

func IsValidation(err error) bool {
	var v Validation
	return stderrors.As(err, &v)
}

// Transient marks a storage failure worth retrying (I/O hiccup,
// connection reset). The persistence worker retries these with backoff.
type Transient struct {
	Cause error
}

func (t Transient) Error() string { return fmt.Sprintf("transient storage error: %v", t.Cause) }
func (t Transient) Unwrap() error { return t.Cause }

func NewTransient(cause error) error {
	if cause == nil {
		return nil
	}
	return Transient{Cause: cause}
}

func IsTransient(err error) bool {
	var t Transient
	return stderrors.As(err, &t)
}

// Permanent marks a storage failure that must not be retried
// (malformed payload, corrupted record).
type Permanent struct {
	Cause error
}

func (p Permanent) Error() string { return fmt.Sprintf("permanent storage error: %v", p.Cause) }
func (p Permanent) Unwrap() error { return p.Cause }

func NewPermanent(cause error) error {
	if cause == nil {
		return nil
	}
	return Permanent{Cause: cause}
}
