package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/index"
)

var listTerms bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the index and print its statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, appOptions{source: "index", progress: progressWriter(cmd.ErrOrStderr())})
		if err != nil {
			return err
		}
		defer a.Close()
		return printIndexStats(cmd.OutOrStdout(), a.index, listTerms)
	},
}

func init() {
	indexCmd.Flags().BoolVar(&listTerms, "terms", false, "list every term with its document frequency")
	rootCmd.AddCommand(indexCmd)
}

func printIndexStats(w io.Writer, idx *index.Index, terms bool) error {
	fmt.Fprintf(w, "documents:   %d\n", idx.DocCount())
	fmt.Fprintf(w, "terms:       %d\n", idx.TermCount())
	fmt.Fprintf(w, "fingerprint: %s\n", idx.Fingerprint())
	if !terms {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "TERM\tDOCUMENTS")
	for _, entry := range idx.Snapshot() {
		fmt.Fprintf(tw, "%q\t%d\n", entry.Term, len(entry.Postings))
	}
	return tw.Flush()
}
