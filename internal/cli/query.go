package cli

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/handler"
)

var (
	queryTerm string
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a single query and exit",
	Example: `  termsearch query -q cat
  termsearch query -q cat --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryTerm == "" {
			return errors.New("--query is required")
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, appOptions{source: "query", progress: progressWriter(cmd.ErrOrStderr())})
		if err != nil {
			return err
		}
		defer a.Close()

		results := a.resolver.Search(ctx, queryTerm)
		if !queryJSON {
			renderResults(cmd.OutOrStdout(), queryTerm, results)
			return nil
		}

		resp := handler.SearchResponse{
			Query:   queryTerm,
			Term:    a.resolver.Key(queryTerm),
			Count:   len(results),
			Results: handler.Views(results),
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryTerm, "query", "q", "", "term to search for")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(queryCmd)
}
