package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Options configures the SQL database connection.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Logger          *slog.Logger
	// PingTimeout bounds the start-up ping and every readiness check.
	PingTimeout time.Duration
}

const defaultPingTimeout = 5 * time.Second

// ErrUnavailable wraps failed readiness checks.
var ErrUnavailable = errors.New("database unavailable")

// DB wraps *sql.DB with the storefront's lifecycle: connect, migrate,
// readiness checks and close.
type DB struct {
	*sql.DB
	logger      *slog.Logger
	pingTimeout time.Duration
}

// Connect opens a pool, applies the sizing options and pings once before
// returning.
func Connect(ctx context.Context, opts Options) (*DB, error) {
	if opts.Driver == "" {
		return nil, errors.New("database driver is required")
	}
	if opts.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}

	pool, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}
	configurePool(pool, opts)

	db := &DB{DB: pool, logger: log, pingTimeout: pingTimeout}
	if err := db.Check(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("database connected",
		"driver", opts.Driver,
		"max_open_conns", opts.MaxOpenConns,
		"max_idle_conns", opts.MaxIdleConns,
	)
	return db, nil
}

func configurePool(pool *sql.DB, opts Options) {
	if opts.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

// Check pings the database within the configured timeout. Failures wrap
// ErrUnavailable.
func (db *DB) Check(ctx context.Context) error {
	if db == nil || db.DB == nil {
		return fmt.Errorf("%w: not connected", ErrUnavailable)
	}
	timeout := db.pingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Close releases database resources after logging final pool usage.
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	if db.logger != nil {
		stats := db.Stats()
		db.logger.Info("closing database",
			"open_connections", stats.OpenConnections,
			"wait_count", stats.WaitCount,
			"wait_duration", stats.WaitDuration,
		)
	}
	return db.DB.Close()
}

// RunMigrations applies migrator, or logs and returns when it is nil.
func (db *DB) RunMigrations(ctx context.Context, migrator Migrator) error {
	if migrator == nil {
		db.logger.Info("no migrator configured; skipping migrations")
		return nil
	}

	start := time.Now()
	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	db.logger.Info("migrations completed", "duration", time.Since(start))
	return nil
}
