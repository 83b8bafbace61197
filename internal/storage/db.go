// Package storage provides the wallet's key-value persistence: raw DB
// backends, key namespacing and the encrypted item store the ledger and
// preferences are kept in.
package storage

import "errors"

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("key not found")
	// ErrStorage wraps backend read/write failures.
	ErrStorage = errors.New("storage error")
	// ErrLocked is returned by SecureStore before a successful Init.
	ErrLocked = errors.New("store is locked")
)

// DB is the interface for key-value storage.
type DB interface {
	// Get returns ErrNotFound when the key does not exist.
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batch collects writes that are applied together by Commit.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}

// Batcher is implemented by DBs that can commit a Batch atomically.
type Batcher interface {
	NewBatch() Batch
}
