package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bosstitler/internal/rollback"
	"bosstitler/internal/services/sheets"
	"bosstitler/internal/services/youtube"
)

func newRollbackCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "rollback [VIDEO_ID]",
		Short: "Restore original titles for renamed videos",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("provide a VIDEO_ID or use --all")
			}
			if all && len(args) > 0 {
				return errors.New("--all cannot be combined with a VIDEO_ID")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			unlock, err := acquireRunLock(cfg)
			if err != nil {
				return err
			}
			defer unlock()

			manager, cleanup, err := buildRollbackManager(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if all {
				summary, err := manager.RollbackBatch(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Outcome", "Count"},
					[][]string{
						{"Candidates", strconv.Itoa(summary.Total)},
						{"Restored", strconv.Itoa(summary.Restored)},
						{"Failed", strconv.Itoa(summary.Failed)},
					},
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			}

			if err := manager.RollbackItem(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored original title for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Restore every renamed video")

	cmd.AddCommand(&cobra.Command{
		Use:   "candidates",
		Short: "List videos whose titles can be restored",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, cleanup, err := buildRollbackManager(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			jobs, err := manager.Candidates(cmd.Context())
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to roll back")
				return nil
			}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{job.VideoID, job.NewTitle, job.OriginalTitle})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Video", "Current title", "Original title"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft}))
			return nil
		},
	})

	return cmd
}

func buildRollbackManager(ctx *commandContext, cmd *cobra.Command) (*rollback.Manager, func(), error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := ctx.buildLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	st, err := ctx.openStore()
	if err != nil {
		return nil, nil, err
	}

	channel := youtube.NewClient(cfg.YouTube.APIToken, youtube.WithBaseURL(cfg.YouTube.BaseURL))
	auditor := sheets.NewRecorder(cfg.YouTube.SpreadsheetID, cfg.YouTube.APIToken, logger,
		sheets.WithBaseURL(cfg.YouTube.SheetsBaseURL))
	manager := rollback.NewManager(st, channel, auditor, logger)
	return manager, func() { st.Close() }, nil
}
