package cli

import (
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/postgres"
)

var loadCmd = &cobra.Command{
	Use:   "load <dir>",
	Short: "Import a directory of numbered documents into PostgreSQL",
	Long: `load reads every document in dir with the same rules the indexer uses and
upserts them into the configured PostgreSQL table, creating it if needed.
Set store.driver to postgres to search the imported documents.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		src, err := store.NewDirStore(args[0], cfg.Store.Ignore)
		if err != nil {
			return fmt.Errorf("opening document directory: %w", err)
		}

		var docs []store.Document
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("reading"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetVisibility(!quiet),
			progressbar.OptionClearOnFinish(),
		)
		err = src.Walk(ctx, func(doc store.Document) error {
			docs = append(docs, doc)
			return bar.Add(1)
		})
		_ = bar.Finish()
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		client, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		dst := store.NewPostgresStore(client, cfg.Postgres.Table)
		defer dst.Close()

		if err := dst.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := dst.Put(ctx, docs); err != nil {
			return err
		}
		slog.Info("documents imported", "count", len(docs), "table", cfg.Postgres.Table)
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d documents into %s\n", len(docs), cfg.Postgres.Table)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
