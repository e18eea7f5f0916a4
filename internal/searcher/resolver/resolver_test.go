package resolver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/snippet"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/metrics"
)

type fixture struct {
	dir   string
	store *store.DirStore
	idx   *index.Index
}

func newFixture(t *testing.T, docs map[string]string) fixture {
	t.Helper()
	dir := t.TempDir()
	for name, text := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
	}
	s, err := store.NewDirStore(dir, nil)
	require.NoError(t, err)
	idx, err := indexer.Build(context.Background(), s)
	require.NoError(t, err)
	return fixture{dir: dir, store: s, idx: idx}
}

func (f fixture) resolver(opts ...Option) *Resolver {
	return New(f.idx, snippet.New(f.store), opts...)
}

// pad makes a document long enough for an 80 character snippet.
func pad(text string) string {
	return text + " " + strings.Repeat("filler ", 15)
}

type recordingTracker struct {
	mu     sync.Mutex
	events []analytics.QueryEvent
}

func (r *recordingTracker) Track(e analytics.QueryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

type mapCache struct {
	entries map[string]index.PostingList
	hits    int
}

func (c *mapCache) GetOrCompute(_ context.Context, term string, fn func() index.PostingList) (index.PostingList, bool) {
	if p, ok := c.entries[term]; ok {
		c.hits++
		return p, true
	}
	p := fn()
	c.entries[term] = p
	return p, false
}

func TestSearchSingleDocument(t *testing.T) {
	text := pad("The cat sat. The cat ran.")
	f := newFixture(t, map[string]string{"1": text})

	results := f.resolver().Search(context.Background(), "cat")
	require.Len(t, results, 1)
	require.Equal(t, uint32(1), results[0].DocID)
	require.Equal(t, 2, results[0].Frequency)
	require.NoError(t, results[0].Err)
	require.Equal(t, text[:80]+"...", results[0].Snippet)
}

func TestSearchRanksByFrequency(t *testing.T) {
	f := newFixture(t, map[string]string{
		"1": pad("dog dog dog"),
		"2": pad("dog"),
	})

	results := f.resolver().Search(context.Background(), "dog")
	require.Len(t, results, 2)
	require.Equal(t, uint32(1), results[0].DocID)
	require.Equal(t, 3, results[0].Frequency)
	require.Equal(t, uint32(2), results[1].DocID)
	require.Equal(t, 1, results[1].Frequency)
}

func TestSearchOrderingHoldsForEveryTerm(t *testing.T) {
	f := newFixture(t, map[string]string{
		"1": "a a b c c c",
		"2": "a b b b c",
		"3": "a a a a b",
		"4": "c",
	})
	r := f.resolver()
	for _, term := range f.idx.Terms() {
		postings := r.Lookup(context.Background(), term)
		require.NotEmpty(t, postings, term)
		for i := 1; i < len(postings); i++ {
			require.GreaterOrEqual(t, postings[i-1].Frequency, postings[i].Frequency, term)
		}
	}
}

func TestSearchUnknownTermIsEmpty(t *testing.T) {
	f := newFixture(t, map[string]string{"1": pad("dog")})

	require.Empty(t, f.resolver().Search(context.Background(), "xyz123"))
	require.Empty(t, f.resolver().Lookup(context.Background(), "xyz123"))
}

func TestShortDocumentSnippetError(t *testing.T) {
	f := newFixture(t, map[string]string{
		"1": "dog dog dog",
		"2": pad("dog"),
	})
	r := f.resolver()

	postings := r.Lookup(context.Background(), "dog")
	require.Equal(t, index.PostingList{{DocID: 1, Frequency: 3}, {DocID: 2, Frequency: 1}}, postings)

	results := r.Search(context.Background(), "dog")
	require.Len(t, results, 2)
	require.ErrorIs(t, results[0].Err, apperrors.ErrDocumentTooShort)
	require.Empty(t, results[0].Snippet)
	require.NoError(t, results[1].Err)
	require.NotEmpty(t, results[1].Snippet)
}

func TestDeletedDocumentSnippetError(t *testing.T) {
	f := newFixture(t, map[string]string{"5": pad("dog")})
	require.NoError(t, os.Remove(filepath.Join(f.dir, "5")))

	results := f.resolver().Search(context.Background(), "dog")
	require.Len(t, results, 1)
	require.Equal(t, uint32(5), results[0].DocID)
	require.ErrorIs(t, results[0].Err, apperrors.ErrDocumentUnavailable)
}

func TestQueryNormalization(t *testing.T) {
	f := newFixture(t, map[string]string{"1": pad("The cat sat.")})

	normalized := f.resolver(WithQueryNormalization(true))
	require.Len(t, normalized.Search(context.Background(), "  Cat. "), 1)
	require.Equal(t, "cat", normalized.Key("  Cat. "))

	literal := f.resolver(WithQueryNormalization(false))
	require.Empty(t, literal.Search(context.Background(), "Cat."))
	require.Len(t, literal.Search(context.Background(), " cat "), 1)
	require.Equal(t, "Cat.", literal.Key(" Cat. "))
}

func TestSearchLimit(t *testing.T) {
	f := newFixture(t, map[string]string{
		"1": pad("dog"),
		"2": pad("dog dog"),
		"3": pad("dog dog dog"),
	})

	results := f.resolver(WithLimit(2)).Search(context.Background(), "dog")
	require.Len(t, results, 2)
	require.Equal(t, uint32(3), results[0].DocID)
	require.Equal(t, uint32(2), results[1].DocID)
}

func TestSearchUsesCache(t *testing.T) {
	f := newFixture(t, map[string]string{"1": pad("dog")})
	c := &mapCache{entries: make(map[string]index.PostingList)}
	r := f.resolver(WithCache(c))

	first := r.Search(context.Background(), "dog")
	second := r.Search(context.Background(), "DOG")
	require.Equal(t, first, second)
	require.Equal(t, 1, c.hits)
}

func TestSearchTracksAndMeasures(t *testing.T) {
	f := newFixture(t, map[string]string{"1": "dog", "2": pad("dog dog")})
	tracker := &recordingTracker{}
	m := metrics.New(prometheus.NewRegistry())
	r := f.resolver(WithTracker(tracker), WithMetrics(m), WithSource("test"))

	r.Search(context.Background(), "dog")
	r.Search(context.Background(), "xyz123")

	require.Len(t, tracker.events, 2)
	require.Equal(t, analytics.EventSearch, tracker.events[0].Type)
	require.Equal(t, 2, tracker.events[0].Results)
	require.Equal(t, 1, tracker.events[0].SnippetErrors)
	require.Equal(t, "test", tracker.events[0].Source)
	require.Equal(t, analytics.EventZeroResult, tracker.events[1].Type)

	require.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SnippetErrorsTotal.WithLabelValues("too_short")))
}

func BenchmarkSearch(b *testing.B) {
	builder := index.NewBuilder()
	for i := 0; i < 5000; i++ {
		_, _ = builder.Add(uint32(i), strings.Repeat("search ", i%7+1)+"engine query processing")
	}
	r := New(builder.Build(), staticSnippets{})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Search(context.Background(), "search")
	}
}

type staticSnippets struct{}

func (staticSnippets) Extract(context.Context, uint32) (string, error) {
	return "snippet...", nil
}
