package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

const (
	ansiBlue  = "\x1b[34m"
	ansiReset = "\x1b[0m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job store and cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			stats, err := st.Statistics(cmd.Context())
			if err != nil {
				return fmt.Errorf("read statistics: %w", err)
			}
			for _, line := range sectionHeader("Jobs", shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Status", "Count"},
				[][]string{
					{"Pending", strconv.Itoa(stats.Pending)},
					{"Processing", strconv.Itoa(stats.Processing)},
					{"Completed", strconv.Itoa(stats.Completed)},
					{"Failed", strconv.Itoa(stats.Failed)},
					{"Total", strconv.Itoa(stats.Total)},
				},
				[]columnAlignment{alignLeft, alignRight}))

			cacheStats, err := st.CacheStatistics(cmd.Context())
			if err != nil {
				return fmt.Errorf("read cache statistics: %w", err)
			}
			for _, line := range sectionHeader("Boss cache", shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Metric", "Value"},
				[][]string{
					{"Entries", strconv.Itoa(cacheStats.Total)},
					{"Active", strconv.Itoa(cacheStats.Active)},
					{"Expired", strconv.Itoa(cacheStats.Expired)},
					{"Max access count", strconv.Itoa(cacheStats.MaxAccessCount)},
				},
				[]columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func sectionHeader(title string, colorize bool) []string {
	rule := strings.Repeat("-", len(title))
	if colorize {
		title = ansiBlue + title + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{title, rule}
}
