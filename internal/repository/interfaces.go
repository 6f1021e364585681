package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key holds no value.
var ErrNotFound = errors.New("key not found")

// KeyValueStore is the client-local storage the history is persisted in.
// Each key holds one opaque value, like browser local storage.
type KeyValueStore interface {
	// Get returns the value under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	Close() error
}
