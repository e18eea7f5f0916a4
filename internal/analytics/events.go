package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

// QueryEvent describes one resolved query.
type QueryEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Query         string    `json:"query"`
	Term          string    `json:"term"`
	Results       int       `json:"results"`
	SnippetErrors int       `json:"snippet_errors"`
	CacheHit      bool      `json:"cache_hit"`
	LatencyMs     int64     `json:"latency_ms"`
	Source        string    `json:"source,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
