package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"deckhand/internal/logging"
	"deckhand/internal/notes"
	"deckhand/internal/store"
)

func newDistributeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "distribute",
		Short: "Push every note in the configured deck to the target profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			dist, err := ctx.newDistribution(st, logger)
			if err != nil {
				return err
			}
			if len(dist.resolved.Targets) == 0 {
				return errors.New("no target profiles configured")
			}

			// The source read happens in the home profile.
			if err := dist.switcher.SwitchAndWait(cmd.Context(), dist.resolved.HomeProfile); err != nil {
				return fmt.Errorf("switch to home profile: %w", err)
			}
			ids, err := dist.backend.FindNotes(cmd.Context(), notes.DeckQuery(dist.resolved.Deck))
			if err != nil {
				return fmt.Errorf("list deck notes: %w", err)
			}
			if len(ids) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Deck %q has no notes to distribute.\n", dist.resolved.Deck)
				return nil
			}

			started := time.Now()
			results := dist.distributor.Distribute(cmd.Context(), ids, dist.resolved.Targets, nil)

			distributed := 0
			var failures []string
			for _, result := range results {
				if result.Success {
					distributed += result.NotesDistributed
				} else {
					failures = append(failures, result.Profile+": "+result.Err)
				}
			}
			if _, err := st.RecordRun(cmd.Context(), store.Run{
				RunID:          uuid.NewString(),
				Kind:           store.RunKindDistribute,
				WordsRequested: len(ids),
				Created:        distributed,
				Errors:         len(failures),
				Detail:         strings.Join(failures, "; "),
				StartedAt:      started,
				FinishedAt:     time.Now(),
			}); err != nil {
				logger.Warn("failed to record run history", logging.Error(err))
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderDistribution(results))
			return nil
		},
	}
}
