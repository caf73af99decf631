package store

import (
	"log/slog"
	"time"
)

type options struct {
	logger *slog.Logger
	clock  func() time.Time
	key    string
}

// Option configures a repository.
type Option func(*options)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the time source used for id and date assignment.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithKey overrides the storage key of the collection.
func WithKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.key = key
		}
	}
}

func buildOptions(key string, opts []Option) options {
	o := options{
		logger: slog.Default(),
		clock:  time.Now,
		key:    key,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
