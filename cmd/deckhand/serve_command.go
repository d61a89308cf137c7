package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"deckhand/internal/daemon"
	"deckhand/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run deckhand as a daemon with a JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			loggerOpts := logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			}
			if cfg.Paths.LogDir != "" {
				loggerOpts.OutputPaths = []string{"stderr", cfg.Paths.LogDir + "/deckhand.log"}
			}
			logger, err := logging.New(loggerOpts)
			if err != nil {
				return err
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			backend, err := ctx.ankiClient()
			if err != nil {
				return err
			}
			generator, err := ctx.llmClient()
			if err != nil {
				return err
			}
			speech, err := ctx.ttsClient()
			if err != nil {
				return err
			}

			d, err := daemon.New(cfg, st, backend, generator, speech, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deckhand daemon listening on %s\n", d.Addr())

			<-runCtx.Done()
			d.Stop()
			return nil
		},
	}
}
