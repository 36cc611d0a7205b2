package kv

import "errors"

var (
	// ErrUnauthorized is returned when the presented token does not match
	// the token configured for the operation class.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when a key has no entry.
	ErrNotFound = errors.New("key not found")
)
