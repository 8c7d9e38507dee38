package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trujjo/neurotome/internal/config"
	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/platform/logger"
)

var version = "0.1.0"

type rootOptions struct {
	configPath string
	logMode    string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "neurotome",
		Short:         "Facet-filtered exploration of a Neo4j property graph",
		Long:          brand.Sprint("neurotome") + " serves an interactive, force-laid-out view of a graph database\n" + subtle.Sprint("Filter by label, location, system and detail tier"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("neurotome {{ .Version }}\n")
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("NEUROTOME_CONFIG"), "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logMode, "log-mode", "", "override log mode (development, production, nop)")

	cmd.AddCommand(
		serveCmd(opts),
		facetsCmd(opts),
		queryCmd(opts),
	)
	return cmd
}

// Execute runs the CLI and prints a failure to stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		if domain.IsConnectionError(err) {
			bad.Fprintf(os.Stderr, "neurotome: cannot reach the graph database: %v\n", err)
		} else {
			bad.Fprintf(os.Stderr, "neurotome: %v\n", err)
		}
	}
	return err
}

func (o *rootOptions) load() (config.Config, *logger.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, nil, err
	}
	mode := cfg.Log.Mode
	if o.logMode != "" {
		mode = o.logMode
	}
	log, err := logger.New(mode)
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// interrupted reports whether err is only the result of Ctrl-C.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, context.Canceled)
}
