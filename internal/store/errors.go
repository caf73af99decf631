package store

import (
	"errors"
	"fmt"
)

// ErrCorruptStore matches any CorruptStoreError through errors.Is.
var ErrCorruptStore = errors.New("corrupt store")

// CorruptStoreError reports a stored collection that could not be decoded.
// The stored value is left as is so the caller can decide how to recover.
type CorruptStoreError struct {
	Key string
	Err error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("corrupt store: key %q: %v", e.Key, e.Err)
}

func (e *CorruptStoreError) Unwrap() error {
	return e.Err
}

func (e *CorruptStoreError) Is(target error) bool {
	return target == ErrCorruptStore
}
