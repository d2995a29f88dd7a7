package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/awmpietro/path-analysis/internal/pathgraph"
	"github.com/awmpietro/path-analysis/internal/rowfilter"
)

func newRankCmd() *cobra.Command {
	var (
		top       int
		minLen    int
		selfLoops bool
		filter    string
		delimiter string
	)

	cmd := &cobra.Command{
		Use:   "rank <file|->",
		Short: "List the most frequent step sequences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			if !cmd.Flags().Changed("top") {
				top = configFromContext(ctx).Analysis.TopN
			}

			rows, err := readRows(args[0], cmd.InOrStdin(), delimiter)
			if err != nil {
				return err
			}
			f, err := rowfilter.Compile(filter)
			if err != nil {
				return fmt.Errorf("filter: %w", err)
			}
			if rows, err = f.Apply(rows); err != nil {
				return err
			}

			seqs := pathgraph.BuildSequences(pathgraph.NormalizeRows(rows), selfLoops)
			ranked := pathgraph.RankSequencesWith(seqs, pathgraph.RankOptions{TopN: top, MinLength: minLen})
			logger.Debug("ranked", "sessions", len(seqs.Steps), "sequences", len(ranked))

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tCOUNT\tSEQUENCE")
			for i, r := range ranked {
				fmt.Fprintf(tw, "%d\t%d\t%s\n", i+1, r.Count, strings.Join(r.Sequence, " -> "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&top, "top", pathgraph.DefaultTopN, "number of sequences to list")
	cmd.Flags().IntVar(&minLen, "min-seq-len", 0, "ignore shorter sequences")
	cmd.Flags().BoolVar(&selfLoops, "self-loops", false, "keep repeated consecutive steps")
	cmd.Flags().StringVar(&filter, "filter", "", "row filter expression")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "field separator")
	return cmd
}
