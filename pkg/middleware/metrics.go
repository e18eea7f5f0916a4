// Package middleware provides the HTTP middleware chain of the search API:
// request IDs, Prometheus metrics, CORS, per-client rate limiting and
// request timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/metrics"
)

// unmatchedRoute labels requests no registered pattern matches, so scanners
// probing random paths cannot grow the label set.
const unmatchedRoute = "other"

// Metrics counts and times requests by the route pattern routes would
// dispatch them to, never by the raw URL path.
func Metrics(m *metrics.Metrics, routes *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeLabel(routes, r)
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		})
	}
}

// routeLabel returns the path part of the pattern routes matches for r, e.g.
// "/api/v1/search" for "GET /api/v1/search".
func routeLabel(routes *http.ServeMux, r *http.Request) string {
	if routes == nil {
		return unmatchedRoute
	}
	_, pattern := routes.Handler(r)
	if pattern == "" {
		return unmatchedRoute
	}
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.written {
		s.status, s.written = code, true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.written = true
	return s.ResponseWriter.Write(b)
}
