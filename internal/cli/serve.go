package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON search API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, appOptions{source: "http", progress: progressWriter(cmd.ErrOrStderr())})
		if err != nil {
			return err
		}
		defer a.Close()

		mux := http.NewServeMux()
		var cacheAdmin handler.CacheAdmin
		if a.cache != nil {
			cacheAdmin = a.cache
		}
		handler.New(a.resolver, a.index, cacheAdmin, cfg.Search.MaxResults).Register(mux)
		mux.Handle("GET /health/ready", a.health.ReadyHandler())

		var limiter *middleware.Limiter
		if cfg.Server.RateLimit > 0 {
			limiter = middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		}
		var h http.Handler = mux
		h = middleware.Timeout(cfg.Server.WriteTimeout)(h)
		h = middleware.RateLimit(limiter)(h)
		h = middleware.CORS(cfg.Server.CORSOrigins)(h)
		h = middleware.Metrics(a.metrics, mux)(h)
		h = middleware.RequestID(h)

		if cfg.Metrics.Enabled {
			scrape := metrics.NewScrapeServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
			scrape.Start()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := scrape.Shutdown(shutdownCtx); err != nil {
					slog.Error("metrics server shutdown failed", "error", err)
				}
			}()
		}

		server := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      h,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("search api listening",
				"addr", server.Addr,
				"documents", a.index.DocCount(),
				"terms", a.index.TermCount(),
			)
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		slog.Info("shutting down search api")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		slog.Info("search api stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
