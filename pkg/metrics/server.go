package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScrapeServer serves a registry on its own port, so scrapes never compete
// with the rate limit and timeouts of the search API.
type ScrapeServer struct {
	srv    *http.Server
	logger *slog.Logger
}

func NewScrapeServer(port int, gatherer prometheus.Gatherer) *ScrapeServer {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))
	return &ScrapeServer{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		logger: slog.Default().With("component", "metrics-server"),
	}
}

// Start listens in the background. A failed listen is logged, not returned:
// search keeps working without scrapes.
func (s *ScrapeServer) Start() {
	go func() {
		s.logger.Info("metrics server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", err)
		}
	}()
}

func (s *ScrapeServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
