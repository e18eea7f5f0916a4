// Package snapshot persists analytics summaries to PostgreSQL so totals
// survive a restart of the analytics consumer.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/postgres"
)

const DefaultTable = "termsearch_analytics_snapshots"

type Store struct {
	db     *postgres.Client
	table  string
	logger *slog.Logger
}

func NewStore(db *postgres.Client, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{
		db:     db,
		table:  pq.QuoteIdentifier(table),
		logger: slog.Default().With("component", "analytics-snapshots"),
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.EnsureTable(ctx, s.table, createTableSQL(s.table))
}

func (s *Store) Save(ctx context.Context, summary analytics.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := s.db.Exec(ctx, insertSQL(s.table), data, time.Now().UTC()); err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Info("analytics snapshot saved", "total_queries", summary.TotalQueries)
	return nil
}

// Latest returns the newest snapshot, or nil when none exists yet.
func (s *Store) Latest(ctx context.Context) (*analytics.Summary, error) {
	var data []byte
	err := s.db.QueryRow(ctx, latestSQL(s.table)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var summary analytics.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &summary, nil
}

// Run saves a snapshot every interval and once more when ctx is cancelled.
func (s *Store) Run(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("periodic snapshots started", "interval", interval)
	for {
		select {
		case <-ticker.C:
			if err := s.Save(ctx, agg.Summary()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.Save(finalCtx, agg.Summary()); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			cancel()
			return
		}
	}
}

func createTableSQL(table string) string {
	return "CREATE TABLE IF NOT EXISTS " + table +
		" (id BIGSERIAL PRIMARY KEY, data JSONB NOT NULL, captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW())"
}

func insertSQL(table string) string {
	return "INSERT INTO " + table + " (data, captured_at) VALUES ($1, $2)"
}

func latestSQL(table string) string {
	return "SELECT data FROM " + table + " ORDER BY captured_at DESC LIMIT 1"
}
