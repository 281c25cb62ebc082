// Package storage provides the durable local blob store used by the
// storefront client for guest-mode persistence and cached credentials.
//
// The store is string-keyed; values are JSON documents (a bare string is
// stored as a JSON string). Three backends
// implement the same interface: a single-document JSON file (default),
// SQLite, and an in-memory map for tests and ephemeral sessions.
package storage

import (
	"context"
	"errors"
)

// Well-known keys. Callers must use these constants rather than raw
// strings so guest data stays namespaced per concern.
const (
	KeyAuthToken     = "auth.token"
	KeyAuthUser      = "auth.user"
	KeyCartItems     = "cart.items"
	KeyWishlistItems = "wishlist.items"
)

// ErrKeyNotFound is returned by Get when the key has no value.
var ErrKeyNotFound = errors.New("key not found")

// Store is the durable local blob store.
// This interface is defined here so services depend on the port, not a
// concrete backend. Implementations: FileStore (prod), SQLiteStore (prod),
// MemoryStore (test).
type Store interface {
	// Get returns the value for key.
	// Returns ErrKeyNotFound if the key has no value.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes the key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// MultiSet stores all pairs atomically.
	MultiSet(ctx context.Context, pairs map[string][]byte) error

	// MultiRemove deletes all keys atomically. Absent keys are ignored.
	MultiRemove(ctx context.Context, keys []string) error

	// Clear removes every key in the store.
	Clear(ctx context.Context) error
}
