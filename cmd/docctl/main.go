// Package main implements docctl, the operator CLI working directly against
// the document storage and the index.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/DocVault/internal/app"
	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"github.com/spf13/cobra"
)

var version = "dev"

// buildApp is swapped in tests.
var buildApp = func(ctx context.Context, cfg *config.Config, opts app.BuildOptions) (*app.App, error) {
	return app.Build(ctx, cfg, opts)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "docctl",
		Short: "Operate the DocVault document library",
		Long: `docctl works directly on the document storage and the vector index,
using the same configuration as the API server.

Examples:
  # Upload two files readable by Finanzas only
  docctl ingest --access-level departamento --department Finanzas q1.pdf q2.xlsx

  # Rebuild the index after a permission migration
  docctl reindex --reset`,
		Version:       version,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// logs share stdout with the JSON output
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			logger_i.Init(level, false)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newIngestCmd(opts),
		newQueryCmd(opts),
		newDeleteCmd(opts),
		newListCmd(opts),
		newReindexCmd(opts),
		newReconcileCmd(opts),
	)
	return root
}

// withApp loads the configuration, builds the components and closes them
// once run returns.
func withApp(cmd *cobra.Command, opts *rootOptions, build app.BuildOptions, run func(a *app.App) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	a, err := buildApp(cmd.Context(), cfg, build)
	if err != nil {
		return err
	}
	defer a.Close()
	return run(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
