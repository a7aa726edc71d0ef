package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("store: key not found")

// Store defines the durable key-value persistence used for client state
// that must survive restarts, such as the signed-in session.
type Store interface {
	// GetValue returns the value stored under key or ErrNotFound.
	GetValue(ctx context.Context, key string) ([]byte, error)

	// SetValue stores value under key, replacing any previous value.
	SetValue(ctx context.Context, key string, value []byte) error

	// DeleteValue removes key. Deleting a missing key is not an error.
	DeleteValue(ctx context.Context, key string) error

	// Keys lists every stored key in lexical order.
	Keys(ctx context.Context) ([]string, error)
}
