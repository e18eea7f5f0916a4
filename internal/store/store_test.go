package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
)

func writeDocs(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
	}
	return dir
}

func collect(t *testing.T, src Source) ([]Document, error) {
	t.Helper()
	var docs []Document
	err := src.Walk(context.Background(), func(d Document) error {
		docs = append(docs, d)
		return nil
	})
	return docs, err
}

func TestParseDocID(t *testing.T) {
	id, err := ParseDocID("42")
	require.NoError(t, err)
	require.Equal(t, uint32(42), id)

	id, err = ParseDocID("007")
	require.NoError(t, err)
	require.Equal(t, uint32(7), id)

	for _, bad := range []string{"abc", "1.txt", "-1", "", "4294967296"} {
		_, err := ParseDocID(bad)
		require.ErrorIs(t, err, apperrors.ErrMalformedDocument, bad)
	}
}

func TestDirStoreWalk(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"2": "dog",
		"1": "dog dog dog",
	})
	s, err := NewDirStore(dir, nil)
	require.NoError(t, err)

	docs, err := collect(t, s)
	require.NoError(t, err)
	require.Equal(t, []Document{
		{ID: 1, Name: "1", Text: "dog dog dog"},
		{ID: 2, Name: "2", Text: "dog"},
	}, docs)
}

func TestDirStoreMissingDirectory(t *testing.T) {
	s, err := NewDirStore(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)

	_, err = collect(t, s)
	require.ErrorIs(t, err, apperrors.ErrEmptyOrMissingStore)
}

func TestDirStoreNotADirectory(t *testing.T) {
	dir := writeDocs(t, map[string]string{"1": "text"})
	s, err := NewDirStore(filepath.Join(dir, "1"), nil)
	require.NoError(t, err)

	_, err = collect(t, s)
	require.ErrorIs(t, err, apperrors.ErrEmptyOrMissingStore)
}

func TestDirStoreMalformedEntries(t *testing.T) {
	t.Run("non numeric name", func(t *testing.T) {
		dir := writeDocs(t, map[string]string{"1": "ok", "abc": "nope"})
		s, _ := NewDirStore(dir, nil)
		_, err := collect(t, s)
		require.ErrorIs(t, err, apperrors.ErrMalformedDocument)
	})
	t.Run("sub directory", func(t *testing.T) {
		dir := writeDocs(t, map[string]string{"1": "ok"})
		require.NoError(t, os.Mkdir(filepath.Join(dir, "2"), 0o755))
		s, _ := NewDirStore(dir, nil)
		_, err := collect(t, s)
		require.ErrorIs(t, err, apperrors.ErrMalformedDocument)
	})
	t.Run("invalid utf8", func(t *testing.T) {
		dir := writeDocs(t, map[string]string{"1": string([]byte{0xff, 0xfe, 0xfd})})
		s, _ := NewDirStore(dir, nil)
		_, err := collect(t, s)
		require.ErrorIs(t, err, apperrors.ErrMalformedDocument)
	})
	t.Run("duplicate id", func(t *testing.T) {
		dir := writeDocs(t, map[string]string{"1": "one", "01": "also one"})
		s, _ := NewDirStore(dir, nil)
		_, err := collect(t, s)
		require.ErrorIs(t, err, apperrors.ErrMalformedDocument)
	})
}

func TestDirStoreIgnorePatterns(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"1":         "kept",
		".DS_Store": "junk",
		"README.md": "docs",
	})
	s, err := NewDirStore(dir, []string{".*", "*.md"})
	require.NoError(t, err)

	docs, err := collect(t, s)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, uint32(1), docs[0].ID)
}

func TestDirStoreInvalidIgnorePattern(t *testing.T) {
	_, err := NewDirStore(t.TempDir(), []string{"[unclosed"})
	require.Error(t, err)
}

func TestDirStoreWalkStopsOnCallbackError(t *testing.T) {
	dir := writeDocs(t, map[string]string{"1": "a", "2": "b"})
	s, _ := NewDirStore(dir, nil)
	stop := errors.New("stop")

	calls := 0
	err := s.Walk(context.Background(), func(Document) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 1, calls)
}

func TestDirStoreFetch(t *testing.T) {
	dir := writeDocs(t, map[string]string{"007": "bond", "3": "three"})
	s, _ := NewDirStore(dir, nil)
	_, err := collect(t, s)
	require.NoError(t, err)

	text, err := s.Fetch(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "bond", text)

	text, err = s.Fetch(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, "three", text)

	require.NoError(t, os.Remove(filepath.Join(dir, "3")))
	_, err = s.Fetch(context.Background(), 3)
	require.ErrorIs(t, err, apperrors.ErrDocumentUnavailable)

	_, err = s.Fetch(context.Background(), 99)
	require.ErrorIs(t, err, apperrors.ErrDocumentUnavailable)
}

func TestPostgresStatements(t *testing.T) {
	require.Equal(t,
		`CREATE TABLE IF NOT EXISTS "documents" (name TEXT PRIMARY KEY, content TEXT NOT NULL)`,
		createTableSQL(`"documents"`),
	)
	require.Contains(t, upsertSQL(`"docs"`), `INSERT INTO "docs" (name, content)`)
}
