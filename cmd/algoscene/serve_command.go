package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API over stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger()
			store, err := openStorage(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runID, err := store.latestRun(sigCtx)
			if err != nil {
				return err
			}
			srv, err := newAPIServer(cfg, runID, nil, store, logger)
			if err != nil {
				return err
			}
			return srv.Serve(sigCtx)
		},
	}
}
