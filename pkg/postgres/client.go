// Package postgres holds the lib/pq connection pool shared by the document
// table and the analytics snapshot table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/resilience"
)

// connectPolicy covers a database that starts alongside termsearch and
// refuses the first few connections.
var connectPolicy = resilience.RetryPolicy{MaxAttempts: 4, InitialDelay: 250 * time.Millisecond, MaxDelay: 2 * time.Second}

type Client struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open sizes the pool from cfg and returns once the server answers a ping.
func Open(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	err = resilience.Retry(ctx, "postgres ping", connectPolicy, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	c := FromDB(db)
	c.logger.Info("postgres connected", "host", cfg.Host, "database", cfg.Database)
	return c, nil
}

// FromDB wraps an already opened pool.
func FromDB(db *sql.DB) *Client {
	return &Client{db: db, logger: slog.Default().With("component", "postgres")}
}

// EnsureTable runs a CREATE TABLE IF NOT EXISTS statement for table.
func (c *Client) EnsureTable(ctx context.Context, table, ddl string) error {
	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	c.logger.Debug("table ready", "table", table)
	return nil
}

func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.db.ExecContext(ctx, query, args...)
	return err
}

func (c *Client) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

func (c *Client) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (c *Client) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.db.Close()
}
