package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vonshlovens/notestore/internal/config"
	"github.com/vonshlovens/notestore/internal/db"
	"github.com/vonshlovens/notestore/internal/kv"
)

// backend is the configured substrate plus what it needs on shutdown.
type backend struct {
	kv.Store
	close  func()
	status func(ctx context.Context) (*db.Status, error)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openBackend opens the substrate selected by store.driver.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		slog.Warn("memory store selected, nothing will be persisted")
		return &backend{Store: kv.NewMemory(), close: func() {}}, nil

	case config.DriverFile:
		fs, err := kv.NewFileStore(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		slog.Debug("file store opened", "dir", fs.Dir())
		return &backend{Store: fs, close: func() {}}, nil

	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		s, err := db.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return &backend{
			Store: s,
			close: func() {
				if err := s.Close(); err != nil {
					slog.Warn("failed to close sqlite store", "error", err)
				}
			},
			status: s.GetStatus,
		}, nil

	case config.DriverPostgres:
		database, err := db.New(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return &backend{Store: database, close: database.Close, status: database.GetStatus}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// withBackend loads the configuration, opens the substrate and runs fn.
func withBackend(ctx context.Context, fn func(cfg *config.Config, b *backend) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()
	return fn(cfg, b)
}
