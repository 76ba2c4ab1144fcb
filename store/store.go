package store

import (
	stderrors "errors"
	"path"
	"strings"
)

// Common errors.
var (
	ErrNotFound   = stderrors.New("key not found")
	ErrClosed     = stderrors.New("store closed")
	ErrInvalidKey = stderrors.New("invalid key")
)

// Store is a durable key-value map holding serialized task records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for a key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Put writes a value for a key, replacing any previous value.
	Put(key string, value []byte) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(key string) error

	// Keys returns every key matching the glob pattern, "*" for all.
	Keys(pattern string) ([]string, error)

	// Close releases the store's resources. The backing data survives
	// for durable backends.
	Close() error
}

// ValidateKey checks a store key.
func ValidateKey(key string) error {
	if key == "" || strings.ContainsAny(key, " \t\r\n") {
		return ErrInvalidKey
	}
	return nil
}

// matchPattern reports whether a key matches a glob pattern.
func matchPattern(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	ok, err := path.Match(pattern, key)
	return err == nil && ok
}
