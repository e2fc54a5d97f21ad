// Package store provides the persistent local key-value store used on this device.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// KV defines a small persistent key-value store.
type KV interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// SetMany writes all entries atomically.
	SetMany(ctx context.Context, entries map[string]string) error

	// DeleteMany removes all keys atomically. Missing keys are ignored.
	DeleteMany(ctx context.Context, keys ...string) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}
