// Package backend stores the bytes behind vault records.
package backend

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when a key does not exist in the backend.
	ErrNotFound = errors.New("not found")

	// ErrInvalidKey is returned for keys that would resolve outside the backend root.
	ErrInvalidKey = errors.New("invalid key")
)

// Backend defines the interface for blob storage.
// Keys are slash separated, e.g. "123/report.pdf".
type Backend interface {
	// Write stores data at the given key, overwriting any existing data.
	Write(ctx context.Context, key string, r io.Reader) error

	// Read retrieves data at the given key.
	// Returns ErrNotFound if the key does not exist.
	// The caller must close the returned ReadCloser.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes data at the given key.
	// Returns nil if the key does not exist (idempotent).
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// PathBackend is implemented by backends whose keys map to local files.
type PathBackend interface {
	Backend

	// Path returns the filesystem location for key.
	Path(key string) (string, error)
}
