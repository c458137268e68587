// Package workflow drives videos through the rename pipeline: eligibility
// checks, job bookkeeping, boss identification, the title rewrite, playlist
// grouping, and the audit trail. Batches run sequentially or through a
// bounded worker pool.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"bosstitler/internal/config"
	"bosstitler/internal/identify"
	"bosstitler/internal/logging"
	"bosstitler/internal/store"
	"bosstitler/internal/titles"
)

// Outcome classifies what happened to one video.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Item is one video to process.
type Item struct {
	VideoID string
	Title   string
}

// Options tunes a run.
type Options struct {
	DryRun bool
	Force  bool
}

// BossResolver resolves a boss name for a video.
type BossResolver interface {
	Identify(ctx context.Context, videoID, game string) (identify.Result, error)
}

// Renamer mutates channel state.
type Renamer interface {
	UpdateTitle(ctx context.Context, videoID, newTitle string) error
	EnsurePlaylist(ctx context.Context, name string) (string, error)
	AddToPlaylist(ctx context.Context, videoID, playlistID string) error
}

// Auditor records outcomes externally. Implementations must be best effort.
type Auditor interface {
	AppendUpdate(ctx context.Context, videoID, originalTitle, newTitle, game, boss string)
	AppendError(ctx context.Context, videoID, originalTitle, message string)
}

// Processor owns the per-video pipeline. One processor serves a whole run;
// its seen set stops the same video being handled twice within it.
type Processor struct {
	store     *store.Store
	resolver  BossResolver
	renamer   Renamer
	auditor   Auditor
	formatter *titles.Formatter
	logger    *slog.Logger
	runID     string

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewProcessor wires a processor from its collaborators.
func NewProcessor(cfg *config.Config, st *store.Store, resolver BossResolver, renamer Renamer, auditor Auditor, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	runID := uuid.New().String()[:8]
	return &Processor{
		store:     st,
		resolver:  resolver,
		renamer:   renamer,
		auditor:   auditor,
		formatter: titles.NewFormatter(cfg.SoulslikeGames),
		logger: logging.NewComponentLogger(logger, "workflow").With(
			logging.String(logging.FieldRunID, runID)),
		runID: runID,
		seen:  make(map[string]struct{}),
	}
}

// RunID identifies this processor's run in logs.
func (p *Processor) RunID() string {
	return p.runID
}

// ProcessItem runs one video through the pipeline. Skips never touch the
// store; failures are recorded on the job and returned. A panic inside the
// pipeline is contained to the item and reported as a failure.
func (p *Processor) ProcessItem(ctx context.Context, item Item, opts Options) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("item panicked",
				logging.String(logging.FieldVideoID, item.VideoID),
				logging.Any("panic", r))
			outcome, err = p.fail(ctx, item, fmt.Errorf("panic processing %s: %v", item.VideoID, r))
		}
	}()

	if !p.markSeen(item.VideoID) {
		return OutcomeSkipped, nil
	}

	if !titles.IsDefaultTitle(item.Title) {
		p.logger.Debug("title already customized",
			logging.String(logging.FieldVideoID, item.VideoID))
		return OutcomeSkipped, nil
	}
	game := titles.CanonicalGame(titles.ExtractGame(item.Title))
	if game == "" {
		return OutcomeSkipped, nil
	}

	job, err := p.store.GetJob(ctx, item.VideoID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load job %s: %w", item.VideoID, err)
	}
	if job != nil && job.Status == store.StatusCompleted && !opts.Force {
		p.logger.Debug("already completed",
			logging.String(logging.FieldVideoID, item.VideoID))
		return OutcomeSkipped, nil
	}

	if opts.DryRun {
		return p.dryRun(item, game)
	}

	if _, err := p.store.AddJob(ctx, item.VideoID, item.Title, game); err != nil {
		return OutcomeFailed, fmt.Errorf("enqueue %s: %w", item.VideoID, err)
	}
	if _, err := p.store.UpdateStatus(ctx, item.VideoID, store.StatusProcessing, store.StatusUpdate{}); err != nil {
		return OutcomeFailed, fmt.Errorf("mark processing %s: %w", item.VideoID, err)
	}

	result, err := p.resolver.Identify(ctx, item.VideoID, game)
	if err != nil {
		return p.fail(ctx, item, fmt.Errorf("identify: %w", err))
	}
	if !result.Known() {
		return p.fail(ctx, item, fmt.Errorf("could not identify boss for %s", item.VideoID))
	}
	boss := result.Boss

	newTitle := p.formatter.Format(game, boss)
	if err := p.renamer.UpdateTitle(ctx, item.VideoID, newTitle); err != nil {
		return p.fail(ctx, item, fmt.Errorf("rename: %w", err))
	}

	p.attachToPlaylist(ctx, item.VideoID, game)
	if p.auditor != nil {
		p.auditor.AppendUpdate(ctx, item.VideoID, item.Title, newTitle, game, boss)
	}

	if _, err := p.store.UpdateStatus(ctx, item.VideoID, store.StatusCompleted, store.StatusUpdate{
		NewTitle: &newTitle,
		BossName: &boss,
	}); err != nil {
		return OutcomeFailed, fmt.Errorf("mark completed %s: %w", item.VideoID, err)
	}

	p.logger.Info("video renamed",
		logging.String(logging.FieldVideoID, item.VideoID),
		logging.String(logging.FieldGame, game),
		logging.String("boss", boss),
		logging.String("source", result.Source),
		logging.String("title", newTitle))
	return OutcomeCompleted, nil
}

// dryRun previews what a real run would act on without touching the store,
// the classifier, or the channel.
func (p *Processor) dryRun(item Item, game string) (Outcome, error) {
	p.logger.Info("dry run",
		logging.String(logging.FieldVideoID, item.VideoID),
		logging.String(logging.FieldGame, game),
		logging.Bool("soulslike", p.formatter.IsSoulslike(game)),
		logging.String("title", item.Title))
	return OutcomeSkipped, nil
}

func (p *Processor) fail(ctx context.Context, item Item, cause error) (Outcome, error) {
	message := cause.Error()
	if _, updateErr := p.store.UpdateStatus(ctx, item.VideoID, store.StatusFailed, store.StatusUpdate{
		ErrorMessage: &message,
	}); updateErr != nil {
		p.logger.Error("failure record lost",
			logging.String(logging.FieldVideoID, item.VideoID),
			logging.Error(updateErr))
	}
	if p.auditor != nil {
		p.auditor.AppendError(ctx, item.VideoID, item.Title, message)
	}
	p.logger.Warn("video failed",
		logging.String(logging.FieldVideoID, item.VideoID),
		logging.Error(cause))
	return OutcomeFailed, cause
}

// attachToPlaylist groups the video under its game. Playlist trouble is
// logged and swallowed so a grouping hiccup cannot fail a finished rename.
func (p *Processor) attachToPlaylist(ctx context.Context, videoID, game string) {
	playlistID, err := p.renamer.EnsurePlaylist(ctx, game)
	if err != nil {
		p.logger.Warn("playlist lookup failed",
			logging.String(logging.FieldGame, game),
			logging.Error(err))
		return
	}
	if err := p.renamer.AddToPlaylist(ctx, videoID, playlistID); err != nil {
		p.logger.Warn("playlist attach failed",
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err))
	}
}

// markSeen records the video for this run, returning false when it was
// already handled.
func (p *Processor) markSeen(videoID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.seen[videoID]; ok {
		return false
	}
	p.seen[videoID] = struct{}{}
	return true
}
