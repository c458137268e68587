// Package identify resolves a boss name for a video by consulting the
// persistent result cache, then running the classifier over the video's
// thumbnail, then over extracted gameplay frames. Only the tiers that run
// incur cost, and any hit is written back to the cache.
package identify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bosstitler/internal/config"
	"bosstitler/internal/logging"
	"bosstitler/internal/services/vision"
	"bosstitler/internal/services/youtube"
	"bosstitler/internal/store"
)

// Source values recorded against cache entries and results. Cache hits
// report the tier that originally produced the entry.
const (
	SourceThumbnail = "thumbnail"
	SourceFrames    = "frames"
)

// Classifier answers a boss name for a set of images, or empty when it
// cannot tell.
type Classifier interface {
	Identify(ctx context.Context, images []string, game string, candidates []string) (string, error)
}

// Sampler extracts frames for the second tier.
type Sampler interface {
	Sample(ctx context.Context, videoID string) []string
}

// CandidateSource supplies known boss names for a game.
type CandidateSource interface {
	Candidates(ctx context.Context, game string) []string
}

// Result is the outcome of an identification.
type Result struct {
	Boss   string
	Source string
}

// Known reports whether a boss was actually identified.
func (r Result) Known() bool {
	return r.Boss != ""
}

// Identifier runs the tiered strategy.
type Identifier struct {
	store      *store.Store
	classifier Classifier
	sampler    Sampler
	candidates CandidateSource
	policy     Policy
	cacheTTL   time.Duration
	useCache   bool
	logger     *slog.Logger

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires an identifier from its collaborators.
func New(cfg *config.Config, st *store.Store, classifier Classifier, sampler Sampler, candidates CandidateSource, logger *slog.Logger) *Identifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Identifier{
		store:      st,
		classifier: classifier,
		sampler:    sampler,
		candidates: candidates,
		policy:     PolicyFromConfig(cfg),
		cacheTTL:   time.Duration(cfg.Processing.Cache.ExpiryDays) * 24 * time.Hour,
		useCache:   cfg.Processing.Cache.Enabled,
		logger:     logging.NewComponentLogger(logger, "identify"),
		sleep:      sleepContext,
	}
}

// Identify resolves the boss for a video. An unidentifiable video yields an
// empty result, not an error; errors mean the attempt itself could not
// complete and the video should be retried later.
func (i *Identifier) Identify(ctx context.Context, videoID, game string) (Result, error) {
	if i.useCache {
		entry, err := i.store.CachedBoss(ctx, videoID, game)
		if err != nil {
			i.logger.Warn("cache lookup failed",
				logging.String(logging.FieldVideoID, videoID),
				logging.Error(err))
		} else if entry != nil && entry.BossName != "" {
			i.logger.Debug("cache hit",
				logging.String(logging.FieldVideoID, videoID),
				logging.String("boss", entry.BossName),
				logging.String("origin", entry.Source))
			// The result carries the tier that originally produced it.
			return Result{Boss: entry.BossName, Source: entry.Source}, nil
		}
	}

	candidates := i.candidates.Candidates(ctx, game)

	boss, err := i.classifyWithRetry(ctx, videoID, []string{youtube.ThumbnailURL(videoID)}, game, candidates)
	if err != nil {
		i.logger.Warn("thumbnail tier failed",
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err))
	} else if boss != "" {
		i.cacheHit(ctx, videoID, game, boss, SourceThumbnail)
		return Result{Boss: boss, Source: SourceThumbnail}, nil
	}

	frames := i.sampler.Sample(ctx, videoID)
	if len(frames) == 0 {
		if err != nil {
			return Result{}, fmt.Errorf("thumbnail classification: %w", err)
		}
		return Result{}, nil
	}

	boss, err = i.classifyWithRetry(ctx, videoID, frames, game, candidates)
	if err != nil {
		return Result{}, fmt.Errorf("frame classification: %w", err)
	}
	if boss != "" {
		i.cacheHit(ctx, videoID, game, boss, SourceFrames)
		return Result{Boss: boss, Source: SourceFrames}, nil
	}
	return Result{}, nil
}

// classifyWithRetry runs one classifier call per attempt, retrying only
// transient failures with exponential backoff. A clean miss stops the loop
// immediately.
func (i *Identifier) classifyWithRetry(ctx context.Context, videoID string, images []string, game string, candidates []string) (string, error) {
	attempts := i.policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := i.policy.Delay(attempt - 1)
			i.logger.Debug("retrying classification",
				logging.String(logging.FieldVideoID, videoID),
				logging.Int(logging.FieldAttempt, attempt+1),
				logging.Duration("delay", delay))
			if err := i.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		boss, err := i.classifier.Identify(ctx, images, game, candidates)
		if err == nil {
			return boss, nil
		}
		lastErr = err
		if !vision.IsTransient(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr)
}

func (i *Identifier) cacheHit(ctx context.Context, videoID, game, boss, source string) {
	if !i.useCache {
		return
	}
	if err := i.store.CacheBoss(ctx, videoID, game, boss, source, i.cacheTTL); err != nil {
		i.logger.Warn("cache write failed",
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
