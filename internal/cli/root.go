// Package cli implements the pathanalysis command-line interface.
//
// Commands:
//   - analyze: build the step-transition graph of a tutor log export
//   - rank: list the most frequent whole-session step sequences
//   - loadtest: drive a running HTTP server's /analyze endpoint
//
// All commands accept --verbose (-v) for debug logging and --config for a
// TOML defaults file. Loggers travel through context.Context.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/awmpietro/path-analysis/internal/config"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets what --version prints; main passes ldflags values.
func SetVersion(v, c, d string) {
	if v != "" {
		version = v
	}
	commit = c
	date = d
}

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// NewRootCmd builds the command tree writing results to out and logs to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "pathanalysis",
		Short:        "Mine and visualize student step sequences from tutor logs",
		Long:         `pathanalysis reads tutor log exports, ranks the step sequences students follow and renders their transitions as a Graphviz graph.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			logger := newLogger(errOut, level)

			cfg, err := config.Resolve(configPath)
			if err != nil {
				return err
			}
			ctx := withLogger(cmd.Context(), logger)
			ctx = withConfig(ctx, cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetOut(out)
	root.SetErr(errOut)
	root.SetVersionTemplate(fmt.Sprintf("pathanalysis %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "TOML defaults file (default $"+config.ConfigFileEnv+")")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newRankCmd())
	root.AddCommand(newLoadtestCmd())

	return root
}

const configKey ctxKey = 1

func withConfig(ctx context.Context, cfg config.Runtime) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

func configFromContext(ctx context.Context) config.Runtime {
	if cfg, ok := ctx.Value(configKey).(config.Runtime); ok {
		return cfg
	}
	return config.Load()
}
