// Package resolver answers single-term queries against a built index. It
// looks the term up, ranks postings by frequency and attaches a snippet to
// every result.
package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/metrics"
)

// SnippetSource produces the preview text for a document.
type SnippetSource interface {
	Extract(ctx context.Context, docID uint32) (string, error)
}

// PostingCache memoizes ranked postings per lookup key.
type PostingCache interface {
	GetOrCompute(ctx context.Context, term string, computeFn func() index.PostingList) (index.PostingList, bool)
}

// EventTracker receives one event per resolved query.
type EventTracker interface {
	Track(event analytics.QueryEvent)
}

// RankedResult is one matching document. Err is set, and Snippet empty, when
// the snippet could not be produced; the match itself is still valid.
type RankedResult struct {
	DocID     uint32 `json:"doc_id"`
	Frequency int    `json:"frequency"`
	Snippet   string `json:"snippet,omitempty"`
	Err       error  `json:"-"`
}

type Resolver struct {
	idx       *index.Index
	snippets  SnippetSource
	cache     PostingCache
	tracker   EventTracker
	metrics   *metrics.Metrics
	normalize bool
	limit     int
	source    string
}

type Option func(*Resolver)

// WithQueryNormalization runs queries through the same normalization as
// document text before lookup. When disabled the trimmed query is used as-is,
// so "Cat" or "cat." never match the indexed term "cat".
func WithQueryNormalization(enabled bool) Option {
	return func(r *Resolver) { r.normalize = enabled }
}

// WithLimit caps the number of results. Zero means no cap.
func WithLimit(n int) Option {
	return func(r *Resolver) {
		if n >= 0 {
			r.limit = n
		}
	}
}

func WithCache(c PostingCache) Option {
	return func(r *Resolver) { r.cache = c }
}

func WithTracker(t EventTracker) Option {
	return func(r *Resolver) { r.tracker = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithSource labels analytics events, e.g. "repl" or "http".
func WithSource(source string) Option {
	return func(r *Resolver) { r.source = source }
}

func New(idx *index.Index, snippets SnippetSource, opts ...Option) *Resolver {
	r := &Resolver{
		idx:       idx,
		snippets:  snippets,
		normalize: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the index term a raw query is looked up under.
func (r *Resolver) Key(query string) string {
	query = strings.TrimSpace(query)
	if r.normalize {
		return tokenizer.NormalizeTerm(query)
	}
	return query
}

// Lookup returns the ranked postings for query without snippets. An unknown
// term yields an empty list.
func (r *Resolver) Lookup(ctx context.Context, query string) index.PostingList {
	postings, _ := r.lookup(ctx, r.Key(query), r.limit)
	return postings
}

func (r *Resolver) lookup(ctx context.Context, key string, limit int) (index.PostingList, bool) {
	compute := func() index.PostingList {
		postings, ok := r.idx.Lookup(key)
		if !ok {
			return nil
		}
		return ranker.Rank(postings, 0)
	}
	var postings index.PostingList
	cacheHit := false
	if r.cache != nil {
		postings, cacheHit = r.cache.GetOrCompute(ctx, key, compute)
	} else {
		postings = compute()
	}
	if limit > 0 && len(postings) > limit {
		postings = postings[:limit]
	}
	return postings, cacheHit
}

// Search resolves query and attaches a snippet to every result, in ranked
// order. Snippet failures are reported on the affected result only.
func (r *Resolver) Search(ctx context.Context, query string) []RankedResult {
	return r.SearchLimit(ctx, query, r.limit)
}

// SearchLimit is Search with a per-call result cap overriding WithLimit.
func (r *Resolver) SearchLimit(ctx context.Context, query string, limit int) []RankedResult {
	start := time.Now()
	log := logger.FromContext(ctx).With("component", "resolver")
	key := r.Key(query)
	postings, cacheHit := r.lookup(ctx, key, limit)

	results := make([]RankedResult, 0, len(postings))
	snippetErrors := 0
	for _, p := range postings {
		result := RankedResult{DocID: p.DocID, Frequency: p.Frequency}
		text, err := r.snippets.Extract(ctx, p.DocID)
		if err != nil {
			snippetErrors++
			result.Err = err
			r.recordSnippetError(err)
			log.Warn("snippet unavailable", "doc_id", p.DocID, "error", err)
		} else {
			result.Snippet = text
		}
		results = append(results, result)
	}

	latency := time.Since(start)
	log.Info("query resolved",
		"query", query,
		"term", key,
		"results", len(results),
		"snippet_errors", snippetErrors,
		"cache_hit", cacheHit,
		"latency", latency,
	)
	eventType := analytics.EventSearch
	if len(results) == 0 {
		eventType = analytics.EventZeroResult
	}
	if r.metrics != nil {
		resultType := "hit"
		if len(results) == 0 {
			resultType = "zero_result"
		}
		r.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
		r.metrics.SearchLatency.Observe(latency.Seconds())
		r.metrics.SearchResultsCount.Observe(float64(len(results)))
	}
	if r.tracker != nil {
		r.tracker.Track(analytics.QueryEvent{
			Type:          eventType,
			Query:         query,
			Term:          key,
			Results:       len(results),
			SnippetErrors: snippetErrors,
			CacheHit:      cacheHit,
			LatencyMs:     latency.Milliseconds(),
			Source:        r.source,
			RequestID:     logger.RequestID(ctx),
		})
	}
	return results
}

func (r *Resolver) recordSnippetError(err error) {
	if r.metrics == nil {
		return
	}
	reason := "unavailable"
	if errors.Is(err, apperrors.ErrDocumentTooShort) {
		reason = "too_short"
	}
	r.metrics.SnippetErrorsTotal.WithLabelValues(reason).Inc()
}
