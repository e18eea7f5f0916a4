// Package indexer builds the inverted index from a document store. A build
// either indexes every document or fails as a whole; a partially built index
// is never returned.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/metrics"
)

type options struct {
	progress func(docID uint32)
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*options)

// WithProgress registers a callback invoked after each document is indexed.
func WithProgress(fn func(docID uint32)) Option {
	return func(o *options) { o.progress = fn }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Build walks src once and returns the finished index.
func Build(ctx context.Context, src store.Source, opts ...Option) (*index.Index, error) {
	o := options{logger: slog.Default().With("component", "indexer")}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	builder := index.NewBuilder()
	var totalTokens int
	o.logger.Info("index build started")

	err := src.Walk(ctx, func(doc store.Document) error {
		n, err := builder.Add(doc.ID, doc.Text)
		if err != nil {
			return fmt.Errorf("indexing document %q: %w", doc.Name, err)
		}
		totalTokens += n
		o.logger.Debug("document indexed",
			"doc_id", doc.ID,
			"token_count", n,
		)
		if o.metrics != nil {
			o.metrics.DocsIndexedTotal.Inc()
		}
		if o.progress != nil {
			o.progress(doc.ID)
		}
		return nil
	})
	if err != nil {
		if o.metrics != nil {
			o.metrics.IndexBuildFailures.WithLabelValues(failureReason(err)).Inc()
		}
		o.logger.Error("index build failed",
			"docs_read", builder.DocCount(),
			"error", err,
		)
		return nil, fmt.Errorf("building index: %w", err)
	}

	idx := builder.Build()
	elapsed := time.Since(start)
	if o.metrics != nil {
		o.metrics.IndexedTerms.Set(float64(idx.TermCount()))
		o.metrics.IndexBuildDuration.Observe(elapsed.Seconds())
	}
	o.logger.Info("index build complete",
		"docs", idx.DocCount(),
		"terms", idx.TermCount(),
		"tokens", totalTokens,
		"fingerprint", idx.Fingerprint(),
		"duration", elapsed,
	)
	return idx, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrEmptyOrMissingStore):
		return "missing_store"
	case errors.Is(err, apperrors.ErrMalformedDocument):
		return "malformed_document"
	default:
		return "other"
	}
}
