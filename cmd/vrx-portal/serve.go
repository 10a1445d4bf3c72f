package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/exploopio/vrx-portal/pkg/server"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		listen    string
		noLatency bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the portal HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if noLatency {
				cfg.Latency.Scale = 0
			}

			srv, err := server.New(cfg, server.Options{Logger: logger, Version: Version})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("starting %s %s", appName, Version)
			if err := srv.Start(ctx); err != nil {
				return err
			}
			logger.Info("%s stopped", appName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides server.listen)")
	cmd.Flags().BoolVar(&noLatency, "no-latency", false, "disable the simulated backend delays")
	return cmd
}

// contextOrBackground guards commands executed without a context.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
