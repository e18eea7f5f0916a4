package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/postgres"
)

var (
	analyticsPort     int
	snapshotInterval  time.Duration
	snapshotTableName string
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Consume query events from Kafka and serve aggregated statistics",
	Long: `analytics reads the query events published by repl, query and serve when
kafka.enabled is set, and serves running totals at GET /api/v1/analytics.
With --snapshot-interval the totals are saved to PostgreSQL and restored on
the next start.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		agg := analytics.NewAggregator()

		var snapshots *snapshot.Store
		if snapshotInterval > 0 {
			client, err := postgres.Open(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer client.Close()
			snapshots = snapshot.NewStore(client, snapshotTableName)
			if err := snapshots.EnsureSchema(ctx); err != nil {
				return err
			}
			prev, err := snapshots.Latest(ctx)
			if err != nil {
				return err
			}
			if prev != nil {
				agg.Restore(*prev)
				slog.Info("restored analytics snapshot", "total_queries", prev.TotalQueries)
			}
		}

		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents, agg.Handler())

		mux := http.NewServeMux()
		analytics.NewHandler(agg).Register(mux)
		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		server := &http.Server{
			Addr:         fmt.Sprintf(":%d", analyticsPort),
			Handler:      middleware.RequestID(middleware.Metrics(processMetrics(), mux)(mux)),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return consumer.Run(gctx)
		})
		if snapshots != nil {
			g.Go(func() error {
				snapshots.Run(gctx, agg, snapshotInterval)
				return nil
			})
		}
		g.Go(func() error {
			slog.Info("analytics api listening", "addr", server.Addr, "topic", cfg.Kafka.Topics.QueryEvents)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("analytics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	analyticsCmd.Flags().IntVar(&analyticsPort, "port", 8081, "port for the analytics API")
	analyticsCmd.Flags().DurationVar(&snapshotInterval, "snapshot-interval", 0, "save totals to PostgreSQL at this interval (0 disables)")
	analyticsCmd.Flags().StringVar(&snapshotTableName, "snapshot-table", snapshot.DefaultTable, "PostgreSQL table for analytics snapshots")
	rootCmd.AddCommand(analyticsCmd)
}
