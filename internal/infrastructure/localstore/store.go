// Package localstore keeps small device-local records (the cart snapshot and
// the session credential) in a key/value backend.
package localstore

import (
	"context"

	"github.com/bookstore/storefront/internal/domain/shared"
)

// Store is a durable key/value store scoped to this device
type Store interface {
	// Get returns the value under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites the value under key
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ErrNotFound is returned by Get for missing keys
var ErrNotFound = shared.ErrNotFound.WithMessage("Local key not found")
