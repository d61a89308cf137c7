package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List backend profiles and their distribution roles",
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
			names, err := dist.backend.GetProfiles(cmd.Context())
			if err != nil {
				return fmt.Errorf("list profiles: %w", err)
			}

			targets := make(map[string]bool, len(dist.resolved.Targets))
			for _, target := range dist.resolved.Targets {
				targets[strings.ToLower(target)] = true
			}

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				role := ""
				switch {
				case strings.EqualFold(name, dist.resolved.HomeProfile):
					role = "home"
				case targets[strings.ToLower(name)]:
					role = "target"
				}
				rows = append(rows, []string{name, role})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Profile", "Role"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
