package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/postgres"
)

// PostgresStore reads documents from a table of (name, content) rows.
type PostgresStore struct {
	client *postgres.Client
	table  string
	names  nameTable
	logger *slog.Logger
}

func NewPostgresStore(client *postgres.Client, table string) *PostgresStore {
	return &PostgresStore{
		client: client,
		table:  pq.QuoteIdentifier(table),
		logger: slog.Default().With("component", "postgres-store", "table", table),
	}
}

// EnsureSchema creates the document table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return s.client.EnsureTable(ctx, s.table, createTableSQL(s.table))
}

func (s *PostgresStore) Walk(ctx context.Context, fn func(Document) error) error {
	rows, err := s.client.Query(ctx, "SELECT name, content FROM "+s.table+" ORDER BY name")
	if err != nil {
		return apperrors.Newf(apperrors.ErrEmptyOrMissingStore, "querying %s: %v", s.table, err)
	}
	defer rows.Close()

	s.names.reset()
	for rows.Next() {
		var name string
		var content sql.NullString
		if err := rows.Scan(&name, &content); err != nil {
			return apperrors.Newf(apperrors.ErrMalformedDocument, "scanning row: %v", err)
		}
		id, err := ParseDocID(name)
		if err != nil {
			return err
		}
		if !content.Valid {
			return apperrors.Newf(apperrors.ErrMalformedDocument, "document %q has no content", name)
		}
		if err := s.names.record(id, name); err != nil {
			return err
		}
		if err := fn(Document{ID: id, Name: name, Text: content.String}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.Newf(apperrors.ErrEmptyOrMissingStore, "iterating %s: %v", s.table, err)
	}
	return nil
}

func (s *PostgresStore) Fetch(ctx context.Context, id uint32) (string, error) {
	var content sql.NullString
	err := s.client.QueryRow(ctx,
		"SELECT content FROM "+s.table+" WHERE name = $1", s.names.lookup(id),
	).Scan(&content)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", apperrors.Newf(apperrors.ErrDocumentUnavailable, "document %d no longer exists", id)
	case err != nil:
		return "", apperrors.Newf(apperrors.ErrDocumentUnavailable, "document %d: %v", id, err)
	case !content.Valid:
		return "", apperrors.Newf(apperrors.ErrDocumentUnavailable, "document %d has no content", id)
	}
	return content.String, nil
}

// Put upserts documents in a single transaction.
func (s *PostgresStore) Put(ctx context.Context, docs []Document) error {
	return s.client.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertSQL(s.table))
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()
		for _, doc := range docs {
			if _, err := stmt.ExecContext(ctx, doc.Name, doc.Text); err != nil {
				return fmt.Errorf("storing document %q: %w", doc.Name, err)
			}
		}
		s.logger.Info("documents stored", "count", len(docs))
		return nil
	})
}

func (s *PostgresStore) Close() error {
	return s.client.Close()
}

func createTableSQL(table string) string {
	return "CREATE TABLE IF NOT EXISTS " + table + " (name TEXT PRIMARY KEY, content TEXT NOT NULL)"
}

func upsertSQL(table string) string {
	return "INSERT INTO " + table + " (name, content) VALUES ($1, $2) " +
		"ON CONFLICT (name) DO UPDATE SET content = EXCLUDED.content"
}
