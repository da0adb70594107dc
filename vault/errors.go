package vault

import "errors"

var (
	// ErrSourceUnreadable is returned when the source file cannot be read or copied.
	ErrSourceUnreadable = errors.New("source file unreadable")

	// ErrRecordNotFound is returned when a vault id is not indexed.
	ErrRecordNotFound = errors.New("file not found in vault")

	// ErrStoreUninitialized is returned by a Store that was not built with New.
	ErrStoreUninitialized = errors.New("cannot use uninitialized vault")

	// ErrStoreDestroyed is returned once a Store has been closed.
	ErrStoreDestroyed = errors.New("vault has been destroyed")
)
