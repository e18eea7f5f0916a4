// Package store provides access to the numbered documents the index is built
// from. A document's name must parse as a base-10 uint32; that number is its
// id everywhere else in termsearch.
package store

import (
	"context"
	"strconv"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
)

type Document struct {
	ID   uint32
	Name string
	Text string
}

// Source enumerates every document. Walk stops at the first error returned by
// fn or by the store itself and returns it.
type Source interface {
	Walk(ctx context.Context, fn func(Document) error) error
}

// Fetcher re-reads a single document by id.
type Fetcher interface {
	Fetch(ctx context.Context, id uint32) (string, error)
}

type Store interface {
	Source
	Fetcher
	Close() error
}

// ParseDocID converts a document name into its id.
func ParseDocID(name string) (uint32, error) {
	id, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return 0, apperrors.Newf(apperrors.ErrMalformedDocument, "document name %q is not a valid id", name)
	}
	return uint32(id), nil
}

// nameTable remembers the store name each id was read from, so that "007"
// can be fetched again as id 7.
type nameTable struct {
	mu    sync.RWMutex
	names map[uint32]string
}

func (t *nameTable) record(id uint32, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.names == nil {
		t.names = make(map[uint32]string)
	}
	if prev, ok := t.names[id]; ok && prev != name {
		return apperrors.Newf(apperrors.ErrMalformedDocument, "documents %q and %q share id %d", prev, name, id)
	}
	t.names[id] = name
	return nil
}

func (t *nameTable) lookup(id uint32) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if name, ok := t.names[id]; ok {
		return name
	}
	return strconv.FormatUint(uint64(id), 10)
}

func (t *nameTable) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names = make(map[uint32]string)
}
