package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"deckhand/internal/daemon"
	"deckhand/internal/daemonctl"
	"deckhand/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and backend status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			client := daemonctl.New(cfg.Paths.APIBind, cfg.Paths.APIToken)
			status, err := client.Status(cmd.Context())
			if err == nil {
				printStatus(out, status, true)
				return nil
			}
			if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				return fmt.Errorf("query daemon: %w", err)
			}

			// No daemon; probe the backend and settings directly.
			backend, err := ctx.ankiClient()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			resolved, err := store.Resolve(cmd.Context(), st, cfg)
			if err != nil {
				return err
			}

			status = daemon.Status{Settings: resolved, DBPath: st.Path()}
			probeCtx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			if version, probeErr := backend.Version(probeCtx); probeErr != nil {
				status.Backend.Error = probeErr.Error()
			} else {
				status.Backend.Reachable = true
				status.Backend.Version = version
			}
			printStatus(out, status, false)
			return nil
		},
	}
}

func printStatus(out io.Writer, status daemon.Status, viaDaemon bool) {
	daemonLine := "not running"
	if viaDaemon {
		daemonLine = fmt.Sprintf("running (pid %d)", status.PID)
		if status.Busy {
			daemonLine += ", run in progress"
		}
	}
	backendLine := "unreachable"
	if status.Backend.Reachable {
		backendLine = fmt.Sprintf("reachable (version %d)", status.Backend.Version)
	} else if status.Backend.Error != "" {
		backendLine = "unreachable: " + status.Backend.Error
	}

	rows := [][]string{
		{"Daemon", daemonLine},
		{"Backend", backendLine},
		{"Home profile", status.Settings.HomeProfile},
		{"Target profiles", strings.Join(status.Settings.Targets, ", ")},
		{"Deck", status.Settings.Deck},
		{"Model", status.Settings.Model},
		{"Database", status.DBPath},
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Item", "Value"},
		rows,
		[]columnAlignment{alignLeft, alignLeft},
	))
}
