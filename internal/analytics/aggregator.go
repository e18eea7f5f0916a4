package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/kafka"
)

const (
	topN          = 10
	maxLatencies  = 10000
	unknownSource = "unknown"
)

// Summary is a point-in-time view of everything the aggregator has seen.
type Summary struct {
	TotalQueries     int64            `json:"total_queries"`
	ZeroResults      int64            `json:"zero_results"`
	SnippetErrors    int64            `json:"snippet_errors"`
	CacheHits        int64            `json:"cache_hits"`
	AvgLatencyMs     float64          `json:"avg_latency_ms"`
	P50LatencyMs     int64            `json:"p50_latency_ms"`
	P95LatencyMs     int64            `json:"p95_latency_ms"`
	P99LatencyMs     int64            `json:"p99_latency_ms"`
	QueriesPerMinute float64          `json:"queries_per_minute"`
	BySource         map[string]int64 `json:"by_source"`
	TopTerms         []TermCount      `json:"top_terms"`
	ZeroResultTerms  []TermCount      `json:"zero_result_terms"`
	Since            time.Time        `json:"since"`
}

type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Aggregator folds query events into running totals. It keeps only the most
// recent latencies for percentile estimates.
type Aggregator struct {
	mu            sync.Mutex
	total         int64
	zeroResults   int64
	snippetErrors int64
	cacheHits     int64
	latencies     []int64
	next          int
	terms         map[string]int64
	zeroTerms     map[string]int64
	sources       map[string]int64
	since         time.Time
	now           func() time.Time
	logger        *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies: make([]int64, 0, 1024),
		terms:     make(map[string]int64),
		zeroTerms: make(map[string]int64),
		sources:   make(map[string]int64),
		since:     time.Now().UTC(),
		now:       time.Now,
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

// Handler decodes query events from Kafka. Undecodable messages are logged
// and skipped so one bad message cannot stall the partition.
func (a *Aggregator) Handler() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			a.logger.Warn("skipping undecodable event", "key", string(key), "error", err)
			return nil
		}
		a.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.snippetErrors += int64(event.SnippetErrors)
	if event.CacheHit {
		a.cacheHits++
	}
	term := event.Term
	if term == "" {
		term = event.Query
	}
	a.terms[term]++
	if event.Results == 0 || event.Type == EventZeroResult {
		a.zeroResults++
		a.zeroTerms[term]++
	}
	source := event.Source
	if source == "" {
		source = unknownSource
	}
	a.sources[source]++

	if len(a.latencies) < maxLatencies {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencies
	}
}

// Restore seeds the running totals from a saved summary. Only the top terms
// survive a snapshot, and latencies start over.
func (a *Aggregator) Restore(prev Summary) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total += prev.TotalQueries
	a.zeroResults += prev.ZeroResults
	a.snippetErrors += prev.SnippetErrors
	a.cacheHits += prev.CacheHits
	for source, n := range prev.BySource {
		a.sources[source] += n
	}
	for _, tc := range prev.TopTerms {
		a.terms[tc.Term] += tc.Count
	}
	for _, tc := range prev.ZeroResultTerms {
		a.zeroTerms[tc.Term] += tc.Count
	}
	if !prev.Since.IsZero() && prev.Since.Before(a.since) {
		a.since = prev.Since
	}
}

func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{
		TotalQueries:    a.total,
		ZeroResults:     a.zeroResults,
		SnippetErrors:   a.snippetErrors,
		CacheHits:       a.cacheHits,
		BySource:        make(map[string]int64, len(a.sources)),
		TopTerms:        top(a.terms, topN),
		ZeroResultTerms: top(a.zeroTerms, topN),
		Since:           a.since,
	}
	for k, v := range a.sources {
		s.BySource[k] = v
	}
	if len(a.latencies) > 0 {
		sorted := append([]int64(nil), a.latencies...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		s.AvgLatencyMs = float64(sum) / float64(len(sorted))
		s.P50LatencyMs = percentile(sorted, 50)
		s.P95LatencyMs = percentile(sorted, 95)
		s.P99LatencyMs = percentile(sorted, 99)
	}
	if minutes := a.now().Sub(a.since).Minutes(); minutes > 0 {
		s.QueriesPerMinute = float64(a.total) / minutes
	}
	return s
}

func percentile(sorted []int64, pct int) int64 {
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// top returns the n highest counts, ties broken alphabetically.
func top(counts map[string]int64, n int) []TermCount {
	result := make([]TermCount, 0, len(counts))
	for term, count := range counts {
		result = append(result, TermCount{Term: term, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Term < result[j].Term
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
