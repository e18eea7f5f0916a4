package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/resolver"
)

const (
	promptLine  = "Enter a query:"
	quitCommand = "quit"
	separator   = "-------------------------"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Index the store and answer queries read from stdin",
	Args:  cobra.NoArgs,
	RunE:  runREPLCommand,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

type querier interface {
	Search(ctx context.Context, query string) []resolver.RankedResult
}

func runREPLCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{source: "repl", progress: progressWriter(cmd.ErrOrStderr())})
	if err != nil {
		return err
	}
	defer a.Close()
	return runREPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a.resolver)
}

// runREPL prompts, reads one query per line and prints its results until
// "quit", end of input or cancellation.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, q querier) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprintf(out, "%s\n\n", promptLine)

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "Quitting...")
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			select {
			case err := <-scanErr:
				if err != nil {
					return fmt.Errorf("reading query: %w", err)
				}
			default:
			}
			fmt.Fprintln(out, "Quitting...")
			return nil
		}

		query := strings.TrimSpace(line)
		if query == quitCommand {
			fmt.Fprintln(out, "Quitting...")
			return nil
		}
		renderResults(out, query, q.Search(ctx, query))
	}
}

// renderResults prints one block per result, or a single "No results" line.
// The separator and the "No results" line are each followed by a blank line.
func renderResults(w io.Writer, query string, results []resolver.RankedResult) {
	if len(results) == 0 {
		fmt.Fprintf(w, "No results for query '%s'.\n\n", query)
		return
	}
	for _, r := range results {
		fmt.Fprintf(w, " DOCUMENT %d (%d Match(es))\n", r.DocID, r.Frequency)
		if r.Err != nil {
			fmt.Fprintf(w, "snippet unavailable: %v\n", r.Err)
		} else {
			fmt.Fprintln(w, r.Snippet)
		}
		fmt.Fprintf(w, "%s\n\n", separator)
	}
}
