package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newGamesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "Show per-game processing totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			summaries, err := st.GamesSummary(cmd.Context())
			if err != nil {
				return fmt.Errorf("read game summary: %w", err)
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No games recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(summaries))
			for _, summary := range summaries {
				rows = append(rows, []string{
					summary.GameName,
					strconv.Itoa(summary.Completed),
					strconv.Itoa(summary.Total),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Game", "Completed", "Total"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight}))
			return nil
		},
	}
}
