package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vonshlovens/notestore/internal/kv"
)

// collection reads and writes one JSON array stored under key.
type collection[T any] struct {
	kv     kv.Store
	key    string
	logger *slog.Logger
}

// load returns the stored records. An absent or empty value is an empty collection.
func (c *collection[T]) load(ctx context.Context) ([]T, error) {
	data, ok, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.key, err)
	}
	if !ok || data == "" {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, &CorruptStoreError{Key: c.key, Err: err}
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// save replaces the stored collection with items.
func (c *collection[T]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	// Markup in titles and content is kept literal, as JSON.stringify would.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.key, err)
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	if err := c.kv.Set(ctx, c.key, string(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.key, err)
	}
	c.logger.Debug("collection written", "key", c.key, "count", len(items), "bytes", len(data))
	return nil
}
