package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
)

// DirStore reads documents from the regular files of a single directory.
// Every entry must be named by its document id; entries matching one of the
// ignore globs are skipped.
type DirStore struct {
	dir    string
	ignore []string
	names  nameTable
	logger *slog.Logger
}

func NewDirStore(dir string, ignore []string) (*DirStore, error) {
	for _, pattern := range ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}
	return &DirStore{
		dir:    dir,
		ignore: ignore,
		logger: slog.Default().With("component", "dir-store", "dir", dir),
	}, nil
}

func (s *DirStore) Walk(ctx context.Context, fn func(Document) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return apperrors.Newf(apperrors.ErrEmptyOrMissingStore, "reading directory %s: %v", s.dir, err)
	}
	s.names.reset()
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if s.ignored(name) {
			s.logger.Debug("skipping ignored entry", "name", name)
			continue
		}
		if entry.IsDir() {
			return apperrors.Newf(apperrors.ErrMalformedDocument, "%s is a directory", filepath.Join(s.dir, name))
		}
		id, err := ParseDocID(name)
		if err != nil {
			return err
		}
		if err := s.names.record(id, name); err != nil {
			return err
		}
		text, err := readText(filepath.Join(s.dir, name))
		if err != nil {
			return apperrors.Newf(apperrors.ErrMalformedDocument, "%v", err)
		}
		if err := fn(Document{ID: id, Name: name, Text: text}); err != nil {
			return err
		}
	}
	return nil
}

func (s *DirStore) Fetch(ctx context.Context, id uint32) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := readText(filepath.Join(s.dir, s.names.lookup(id)))
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrDocumentUnavailable, "document %d: %v", id, err)
	}
	return text, nil
}

func (s *DirStore) Close() error {
	return nil
}

func (s *DirStore) ignored(name string) bool {
	for _, pattern := range s.ignore {
		if matched, err := doublestar.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", path)
	}
	return string(data), nil
}
