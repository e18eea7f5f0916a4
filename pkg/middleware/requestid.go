package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates the caller's X-Request-ID, or generates one, into the
// request context and the response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
