// Package cli implements the termsearch command line: the interactive query
// loop, one-shot queries, index statistics, the HTTP API and document import.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
)

var (
	cfgFile string
	quiet   bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "termsearch",
	Short: "Single-term full-text search over a directory of numbered documents",
	Long: `termsearch indexes a store of documents named by integer ids and answers
single-term queries with matching documents ranked by term frequency.

Example usage:
  termsearch                      # index ./documents and start the query loop
  termsearch query -q cat         # one-shot query
  termsearch index --terms        # print index statistics and terms
  termsearch serve                # serve the JSON search API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(config.ResolvePath(cfgFile))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
		return nil
	},
	RunE: runREPLCommand,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.DefaultPath+" when present)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "hide the indexing progress bar")
}
