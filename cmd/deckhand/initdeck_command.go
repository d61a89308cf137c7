package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitDeckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init-deck",
		Short: "Ensure the configured deck exists in the home profile",
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
			if err := dist.switcher.SwitchAndWait(cmd.Context(), dist.resolved.HomeProfile); err != nil {
				return fmt.Errorf("switch to home profile: %w", err)
			}

			decks, err := dist.backend.DeckNames(cmd.Context())
			if err != nil {
				return fmt.Errorf("list decks: %w", err)
			}
			for _, deck := range decks {
				if deck == dist.resolved.Deck {
					fmt.Fprintf(cmd.OutOrStdout(), "Deck %q already exists in profile %q.\n",
						dist.resolved.Deck, dist.resolved.HomeProfile)
					return nil
				}
			}

			if err := dist.backend.CreateDeck(cmd.Context(), dist.resolved.Deck); err != nil {
				return fmt.Errorf("create deck: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created deck %q in profile %q.\n",
				dist.resolved.Deck, dist.resolved.HomeProfile)
			return nil
		},
	}
}
