package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/awmpietro/path-analysis/internal/app"
	"github.com/awmpietro/path-analysis/internal/pathgraph"
)

type analyzeOpts struct {
	req       app.Request
	reference string
	delimiter string
	output    string
	asJSON    bool
	check     bool
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOpts

	cmd := &cobra.Command{
		Use:   "analyze <file|->",
		Short: "Render the step-transition graph of a tutor log export",
		Long: `Analyze reads a CSV, TSV or JSON export, builds per-session step sequences
and writes a Graphviz DOT description of their transitions. The most frequent
sequence is the reference path unless --reference names one.`,
		Example: `  pathanalysis analyze logs.tsv -o graph.dot
  pathanalysis analyze logs.csv --error-mode --min-visits 2 --policy ratio
  pathanalysis analyze logs.csv --reference "Start,FinalAnswer,DoneButton" --reference-only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.req.IncludeSelfLoops, "self-loops", false, "keep repeated consecutive steps")
	f.IntVar(&opts.req.TopN, "top", 0, "number of ranked sequences (0 = configured default)")
	f.IntVar(&opts.req.MinSequenceLen, "min-seq-len", 0, "ignore shorter sequences when ranking")
	f.StringVar(&opts.req.Filter, "filter", "", `row filter, e.g. 'progressStatus == "GRADUATED"'`)
	f.BoolVar(&opts.req.DropAutofilled, "drop-autofilled", false, "drop autofilled rows")
	f.StringVar(&opts.req.Policy, "policy", "", "edge thickness policy: count or ratio")
	f.Float64Var(&opts.req.MaxThickness, "max-thickness", 0, "maximum edge pen width")
	f.Float64Var(&opts.req.Threshold, "threshold", 0, "minimum edge thickness to draw")
	f.IntVar(&opts.req.MinVisits, "min-visits", 0, "draw only edges with a count above this")
	f.BoolVar(&opts.req.UniqueStudents, "unique-students", false, "count distinct students per edge instead of traversals")
	f.BoolVar(&opts.req.ErrorMode, "error-mode", false, "color edges by non-OK outcomes only")
	f.BoolVar(&opts.req.ReferenceOnly, "reference-only", false, "draw only edges along the reference path")
	f.StringVar(&opts.reference, "reference", "", "comma-separated reference path")
	f.StringVar(&opts.delimiter, "delimiter", "", `field separator (default: detect tab or comma; "tab" for TSV)`)
	f.StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	f.BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	f.BoolVar(&opts.check, "check", false, "parse the emitted graph back and report its size")

	return cmd
}

func runAnalyze(cmd *cobra.Command, path string, opts analyzeOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	cfg := configFromContext(ctx)
	prog := newProgress(logger)

	rows, err := readRows(path, cmd.InOrStdin(), opts.delimiter)
	if err != nil {
		return err
	}
	logger.Debug("rows loaded", "path", path, "rows", len(rows))

	if opts.reference != "" {
		opts.req.Reference = splitSteps(opts.reference)
	}

	svc := app.NewService(
		app.WithLogger(logger),
		app.WithDefaults(cfg.Analysis),
		app.WithRunObserver(app.NewRunLogger(logger)),
	)
	res, trace, err := svc.AnalyzeWithTrace(ctx, rows, opts.req)
	if err != nil {
		return err
	}
	logger.Debug("run", "id", trace.RunID, "rows_analyzed", trace.RowsAnalyzed)

	if opts.check {
		g, err := pathgraph.Inspect(res.DOT)
		if err != nil {
			return fmt.Errorf("emitted graph does not parse: %w", err)
		}
		logger.Info("graph ok", "nodes", len(g.Nodes), "edges", len(g.Edges))
	}

	out, closeOut, err := openOutput(cmd.OutOrStdout(), opts.output)
	if err != nil {
		return err
	}
	defer closeOut()

	if opts.asJSON {
		b, err := sonic.ConfigDefault.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		if err != nil {
			return err
		}
	} else if _, err := io.WriteString(out, res.DOT); err != nil {
		return err
	}

	prog.done(fmt.Sprintf("Analyzed %d sessions, max count %d, connected up to %d", res.SessionCount, res.MaxCount, res.MaxConnectedThreshold))
	return nil
}

func splitSteps(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func openOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
