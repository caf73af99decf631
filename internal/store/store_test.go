package store

import (
	"context"
	"errors"
	"time"

	"github.com/vonshlovens/notestore/internal/kv"
)

// failingStore wraps a kv.Store and fails reads or writes on demand.
type failingStore struct {
	kv.Store
	getErr error
	setErr error
	sets   int
}

func (f *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, value)
}

var errDisk = errors.New("disk unavailable")

// stepClock returns a clock that advances one millisecond per call.
func stepClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

var epoch = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
