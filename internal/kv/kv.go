// Package kv defines the key-value substrate the repositories persist through
// and the in-process backends (memory, file directory). SQL backends live in
// internal/db.
package kv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidKey is returned when a key cannot be stored by a backend.
var ErrInvalidKey = errors.New("invalid key")

// Store is a durable mapping from string keys to text values.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

var keyRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidateKey reports whether key is usable by every backend.
func ValidateKey(key string) error {
	if !keyRegex.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
