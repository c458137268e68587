package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"bosstitler/internal/bosslist"
	"bosstitler/internal/config"
	"bosstitler/internal/identify"
	"bosstitler/internal/services/media"
	"bosstitler/internal/services/sheets"
	"bosstitler/internal/services/vision"
	"bosstitler/internal/services/youtube"
	"bosstitler/internal/store"
	"bosstitler/internal/titles"
	"bosstitler/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun  bool
		force   bool
		resume  bool
		videoID string
		game    string
		limit   int
		workers int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process channel uploads and rename identified videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			unlock, err := acquireRunLock(cfg)
			if err != nil {
				return err
			}
			defer unlock()

			logger, err := ctx.buildLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if !dryRun {
				reset, err := st.ResetStuckProcessing(runCtx)
				if err != nil {
					return fmt.Errorf("reset stuck jobs: %w", err)
				}
				if reset > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d interrupted job(s)\n", reset)
				}
			}

			channel := youtube.NewClient(cfg.YouTube.APIToken, youtube.WithBaseURL(cfg.YouTube.BaseURL))
			classifier := vision.NewClient(vision.Config{
				APIKey:         cfg.Vision.APIKey,
				BaseURL:        cfg.Vision.BaseURL,
				Model:          cfg.Vision.Model,
				MaxTokens:      cfg.Vision.MaxTokens,
				TimeoutSeconds: cfg.Vision.TimeoutSeconds,
			})
			sampler := media.NewFrameSampler(cfg, logger)
			candidates := bosslist.NewProvider(cfg, logger)
			resolver := identify.New(cfg, st, classifier, sampler, candidates, logger)
			auditor := sheets.NewRecorder(cfg.YouTube.SpreadsheetID, cfg.YouTube.APIToken, logger,
				sheets.WithBaseURL(cfg.YouTube.SheetsBaseURL))
			processor := workflow.NewProcessor(cfg, st, resolver, channel, auditor, logger)

			items, err := gatherItems(runCtx, st, channel, cfg.Processing.Retry.MaxAttempts, resume, videoID)
			if err != nil {
				return err
			}
			if game != "" {
				items = filterByGame(items, game)
			}
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to process")
				return nil
			}

			opts := workflow.Options{DryRun: dryRun, Force: force}
			poolSize := workers
			if poolSize == 0 && cfg.Processing.Parallel.Enabled {
				poolSize = cfg.Processing.Parallel.Workers
			}

			var summary workflow.Summary
			if poolSize > 1 {
				summary, err = processor.RunParallel(runCtx, items, opts, poolSize)
			} else {
				pause := time.Duration(cfg.YouTube.RateLimitDelay) * time.Second
				summary, err = processor.RunSequential(runCtx, items, opts, pause)
			}
			printSummary(cmd, summary)
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview eligible videos without making changes")
	cmd.Flags().BoolVar(&force, "force", false, "Reprocess videos already completed")
	cmd.Flags().BoolVar(&resume, "resume", false, "Process pending and retryable failed jobs from the store")
	cmd.Flags().StringVar(&videoID, "video-id", "", "Process a single video by ID")
	cmd.Flags().StringVar(&game, "game", "", "Only process videos whose game name contains this string")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of videos to process")
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker pool size (overrides configuration)")

	return cmd
}

// acquireRunLock takes the single-instance lock shared by every command
// that mutates the channel or the store.
func acquireRunLock(cfg *config.Config) (func(), error) {
	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "bosstitler.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another bosstitler run is already in progress")
	}
	return func() { lock.Unlock() }, nil
}

// gatherItems decides the work list. Resume runs come from the store;
// normal runs come from the channel's uploads, optionally narrowed to one
// video.
func gatherItems(ctx context.Context, st *store.Store, channel *youtube.Client, maxAttempts int, resume bool, videoID string) ([]workflow.Item, error) {
	if resume {
		pending, err := st.ListByStatus(ctx, store.StatusPending)
		if err != nil {
			return nil, fmt.Errorf("list pending jobs: %w", err)
		}
		retryable, err := st.ListFailedRetryable(ctx, maxAttempts)
		if err != nil {
			return nil, fmt.Errorf("list retryable jobs: %w", err)
		}
		items := make([]workflow.Item, 0, len(pending)+len(retryable))
		for _, job := range append(pending, retryable...) {
			items = append(items, workflow.Item{VideoID: job.VideoID, Title: job.OriginalTitle})
		}
		return items, nil
	}

	uploads, err := channel.ListUploads(ctx)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	items := make([]workflow.Item, 0, len(uploads))
	for _, video := range uploads {
		if videoID != "" && video.ID != videoID {
			continue
		}
		items = append(items, workflow.Item{VideoID: video.ID, Title: video.Title})
	}
	if videoID != "" && len(items) == 0 {
		return nil, fmt.Errorf("video %s not found among uploads", videoID)
	}
	return items, nil
}

// filterByGame keeps items whose extracted game name contains the filter,
// case-insensitively.
func filterByGame(items []workflow.Item, game string) []workflow.Item {
	filter := strings.ToLower(game)
	kept := items[:0]
	for _, item := range items {
		if strings.Contains(strings.ToLower(titles.ExtractGame(item.Title)), filter) {
			kept = append(kept, item)
		}
	}
	return kept
}

func printSummary(cmd *cobra.Command, summary workflow.Summary) {
	rows := [][]string{
		{"Total", strconv.Itoa(summary.Total)},
		{"Completed", strconv.Itoa(summary.Completed)},
		{"Failed", strconv.Itoa(summary.Failed)},
		{"Skipped", strconv.Itoa(summary.Skipped)},
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Outcome", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}
