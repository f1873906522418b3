package domain

import "errors"

var (
	// ErrUnauthenticated means the caller presented no usable identity.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the session exists but belongs to another user.
	ErrForbidden = errors.New("forbidden")

	// ErrSessionNotFound means no session matches the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed means the session no longer accepts turns.
	ErrSessionClosed = errors.New("session closed")

	// ErrInvalidArgument marks client input that fails validation.
	ErrInvalidArgument = errors.New("invalid argument")
)
