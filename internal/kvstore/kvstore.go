// Package kvstore provides durable string-key to JSON-string storage
// behind a single contract, with a local file implementation and a
// PostgreSQL implementation.
package kvstore

import "context"

// Store is the persisted key-value contract. Values are opaque to the
// store; callers serialize to and from JSON strings. Each key's value
// is replaced atomically as a whole.
type Store interface {
	// Get returns the value for key. The second return is false if the
	// key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set replaces the value for key.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
