package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"sanctionsbot/internal/watchlist"
)

func newDiffCmd() *cobra.Command {
	var (
		from, to  string
		maxLen    int
		separator string
	)
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Print the posts two saved lists would produce",
		Long: `The diff command compares two files, each either a saved snapshot or a raw
list response, and prints the resulting posts one per line. Nothing is
fetched, published or stored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prev, err := readSnapshot(from)
			if err != nil {
				return err
			}
			cur, err := readSnapshot(to)
			if err != nil {
				return err
			}
			return printDiff(cmd.OutOrStdout(), prev, cur, watchlist.Formatter{MaxLen: maxLen, Separator: separator})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "previous snapshot or response file")
	cmd.Flags().StringVar(&to, "to", "", "current snapshot or response file")
	cmd.Flags().IntVar(&maxLen, "max-len", watchlist.DefaultMaxLen, "maximum post length in characters")
	cmd.Flags().StringVar(&separator, "separator", watchlist.DefaultSeparator, "separator between source lines")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func readSnapshot(path string) (watchlist.Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return watchlist.Snapshot{}, err
	}
	s, err := watchlist.DecodeSnapshot(b)
	if err != nil {
		return watchlist.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func printDiff(w io.Writer, prev, cur watchlist.Snapshot, f watchlist.Formatter) error {
	d := watchlist.Compare(prev, cur)
	chunks := f.Format(d)
	if len(chunks) == 0 {
		_, err := fmt.Fprintln(w, "no changes")
		return err
	}
	added, removed := d.Count()
	if _, err := fmt.Fprintf(w, "# %d added, %d removed, %d post(s)\n", added, removed, len(chunks)); err != nil {
		return err
	}
	for _, c := range chunks {
		if _, err := fmt.Fprintln(w, c); err != nil {
			return err
		}
	}
	return nil
}
