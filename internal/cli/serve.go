package cli

import (
	"github.com/spf13/cobra"

	"github.com/trujjo/neurotome/internal/app"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP explorer service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, log)
			if err != nil {
				log.Error("startup failed", "error", err)
				return err
			}
			defer a.Close()

			if err := a.Run(ctx); err != nil && !interrupted(ctx, err) {
				return err
			}
			log.Info("shut down")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
