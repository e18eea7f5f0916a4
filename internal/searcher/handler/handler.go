// Package handler exposes the resolver over HTTP as a small JSON API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/resolver"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
)

type Searcher interface {
	SearchLimit(ctx context.Context, query string, limit int) []resolver.RankedResult
	Key(query string) string
}

type CacheAdmin interface {
	Invalidate(ctx context.Context) (int64, error)
	Stats() (hits, misses int64)
}

type SearchResponse struct {
	Query   string       `json:"query"`
	Term    string       `json:"term"`
	Count   int          `json:"count"`
	Results []ResultView `json:"results"`
}

type ResultView struct {
	DocID        uint32 `json:"doc_id"`
	Frequency    int    `json:"frequency"`
	Snippet      string `json:"snippet,omitempty"`
	SnippetError string `json:"snippet_error,omitempty"`
}

type StatsResponse struct {
	Documents   int    `json:"documents"`
	Terms       int    `json:"terms"`
	Fingerprint string `json:"fingerprint"`
	CacheHits   *int64 `json:"cache_hits,omitempty"`
	CacheMisses *int64 `json:"cache_misses,omitempty"`
}

type Handler struct {
	searcher   Searcher
	idx        *index.Index
	cache      CacheAdmin
	maxResults int
	logger     *slog.Logger
}

// New builds the API handler. cache may be nil; maxResults of zero means
// no cap.
func New(searcher Searcher, idx *index.Index, cache CacheAdmin, maxResults int) *Handler {
	return &Handler{
		searcher:   searcher,
		idx:        idx,
		cache:      cache,
		maxResults: maxResults,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health", h.Health)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, "query parameter 'q' is required"))
		return
	}

	limit := h.maxResults
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, "limit must be a positive integer"))
			return
		}
		if h.maxResults == 0 || parsed < h.maxResults {
			limit = parsed
		}
	}

	results := h.searcher.SearchLimit(r.Context(), query, limit)
	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:   query,
		Term:    h.searcher.Key(query),
		Count:   len(results),
		Results: Views(results),
	})
}

// Views converts resolver results to their JSON form. The result is never nil.
func Views(results []resolver.RankedResult) []ResultView {
	views := make([]ResultView, 0, len(results))
	for _, res := range results {
		view := ResultView{
			DocID:     res.DocID,
			Frequency: res.Frequency,
			Snippet:   res.Snippet,
		}
		if res.Err != nil {
			view.SnippetError = res.Err.Error()
		}
		views = append(views, view)
	}
	return views
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Documents:   h.idx.DocCount(),
		Terms:       h.idx.TermCount(),
		Fingerprint: h.idx.Fingerprint(),
	}
	if h.cache != nil {
		hits, misses := h.cache.Stats()
		resp.CacheHits, resp.CacheMisses = &hits, &misses
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrInternal, "cache invalidation failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": message})
}
