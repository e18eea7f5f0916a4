// Package snippet builds short previews of documents. Text is always re-read
// from the store; nothing is cached.
package snippet

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
)

const (
	DefaultLength   = 80
	DefaultEllipsis = "..."
)

type Extractor struct {
	fetcher  store.Fetcher
	length   int
	ellipsis string
	fallback bool
}

type Option func(*Extractor)

// WithLength sets the snippet length in characters. Non-positive values are
// ignored.
func WithLength(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.length = n
		}
	}
}

func WithEllipsis(s string) Option {
	return func(e *Extractor) { e.ellipsis = s }
}

// WithFallback makes documents shorter than the snippet length return their
// full text instead of ErrDocumentTooShort.
func WithFallback(enabled bool) Option {
	return func(e *Extractor) { e.fallback = enabled }
}

func New(fetcher store.Fetcher, opts ...Option) *Extractor {
	e := &Extractor{
		fetcher:  fetcher,
		length:   DefaultLength,
		ellipsis: DefaultEllipsis,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the first Length characters of the document followed by
// the ellipsis.
func (e *Extractor) Extract(ctx context.Context, docID uint32) (string, error) {
	text, err := e.fetcher.Fetch(ctx, docID)
	if err != nil {
		if errors.Is(err, apperrors.ErrDocumentUnavailable) {
			return "", err
		}
		return "", apperrors.Newf(apperrors.ErrDocumentUnavailable, "document %d: %v", docID, err)
	}

	end, ok := prefixEnd(text, e.length)
	if !ok {
		if e.fallback {
			return text, nil
		}
		return "", apperrors.Newf(apperrors.ErrDocumentTooShort,
			"document %d has %d characters, need %d", docID, utf8.RuneCountInString(text), e.length)
	}
	return text[:end] + e.ellipsis, nil
}

// prefixEnd returns the byte offset just past the first n runes of s, and
// false when s holds fewer than n runes.
func prefixEnd(s string, n int) (int, bool) {
	count := 0
	for i := range s {
		if count == n {
			return i, true
		}
		count++
	}
	return len(s), count == n
}
