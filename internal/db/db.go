// Package db provides the SQL-backed key-value substrates: Postgres through
// pgxpool and an embedded SQLite file through modernc.org/sqlite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vonshlovens/notestore/internal/config"
	"github.com/vonshlovens/notestore/internal/kv"
)

var (
	_ kv.Store  = (*DB)(nil)
	_ kv.Lister = (*DB)(nil)
)

// DB is the Postgres substrate. Entries live in kv_entries inside the
// configured schema.
type DB struct {
	pool *pgxpool.Pool
	cfg  config.DatabaseConfig
}

// newPoolConfig derives pool settings from the connection config. Collections
// are written whole by one caller at a time, so the pool stays small.
func newPoolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	pc.MaxConns = 4
	pc.MinConns = 1
	pc.MaxConnLifetime = time.Hour
	pc.MaxConnIdleTime = 30 * time.Minute
	pc.HealthCheckPeriod = time.Minute
	return pc, nil
}

// New connects to Postgres and pings it. It does not migrate; see RunMigrations.
func New(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	pc, err := newPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("postgres store ready", "host", cfg.Host, "database", cfg.Database, "schema", cfg.Schema)
	return &DB{pool: pool, cfg: *cfg}, nil
}

// Schema returns the schema holding kv_entries, "" for the search_path default.
func (db *DB) Schema() string { return db.cfg.Schema }

// Close releases the pool.
func (db *DB) Close() {
	if db.pool == nil {
		return
	}
	db.pool.Close()
	slog.Debug("postgres store closed")
}

// Ping checks the server is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// versionTable is the goose bookkeeping table, qualified by schema when set.
func (db *DB) versionTable() string {
	if db.cfg.Schema == "" {
		return defaultVersionTable
	}
	return db.cfg.Schema + "." + defaultVersionTable
}

// RunMigrations creates the schema when missing and applies the embedded
// postgres migrations.
func (db *DB) RunMigrations(ctx context.Context) error {
	if schema := db.cfg.Schema; schema != "" {
		// config.SanitizeIdentifier has already reduced it to [a-z0-9_].
		if _, err := db.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", schema, err)
		}
	}

	conn, err := sql.Open("pgx", db.cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer conn.Close()

	if err := migrate(conn, "postgres", postgresMigrations, db.versionTable()); err != nil {
		return err
	}
	slog.Info("postgres migrations applied", "schema", db.cfg.Schema)
	return nil
}
