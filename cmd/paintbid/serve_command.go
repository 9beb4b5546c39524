package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paintbid/paintbid/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bindFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the bid and AI HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			bind := bindFlag
			if bind == "" {
				bind = loaded.Config.API.Bind
			}

			aiClient, err := ctx.aiClient()
			if err != nil {
				return err
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(bind, store, aiClient, ctx.logger())
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			defer srv.Stop()

			<-runCtx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&bindFlag, "bind", "", "Listen address (defaults to api.bind)")
	return cmd
}
