// internal/store/store.go
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("key not found")

// KV is the minimal key-value contract the notification and preference
// stores are built on. Values are opaque serialized blobs; callers own
// the encoding.
type KV interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes value under key, replacing any existing value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
