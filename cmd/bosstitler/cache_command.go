package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the boss identification cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.CacheStatistics(cmd.Context())
			if err != nil {
				return fmt.Errorf("read cache statistics: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Metric", "Value"},
				[][]string{
					{"Entries", strconv.Itoa(stats.Total)},
					{"Active", strconv.Itoa(stats.Active)},
					{"Expired", strconv.Itoa(stats.Expired)},
					{"Max access count", strconv.Itoa(stats.MaxAccessCount)},
				},
				[]columnAlignment{alignLeft, alignRight}))
			return nil
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := st.SweepExpiredCache(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entr%s\n", removed, plural(removed, "y", "ies"))
			return nil
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			total, expired, err := st.ClearCache(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entr%s (%d expired)\n", total, plural(int64(total), "y", "ies"), expired)
			return nil
		},
	})

	return cacheCmd
}

func plural(count int64, singular, pluralForm string) string {
	if count == 1 {
		return singular
	}
	return pluralForm
}
