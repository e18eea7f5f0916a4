package middleware

import (
	"net/http"
	"time"
)

// Timeout bounds request handling with http.TimeoutHandler and answers with a
// JSON error body once the deadline passes.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.TimeoutHandler(next, timeout, `{"error":"request timeout"}`)
	}
}
