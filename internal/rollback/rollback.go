// Package rollback restores original video titles from the job store. A
// rolled back job stays completed with its new title reset to the original,
// so it remains eligible for a later forced rerun but is never picked up
// again by accident.
package rollback

import (
	"context"
	"fmt"
	"log/slog"

	"bosstitler/internal/logging"
	"bosstitler/internal/store"
)

// TitleWriter rewrites a video title on the channel.
type TitleWriter interface {
	UpdateTitle(ctx context.Context, videoID, newTitle string) error
}

// Auditor records rollbacks externally, best effort.
type Auditor interface {
	AppendRollback(ctx context.Context, videoID, restoredTitle string)
}

// Summary tallies a batch rollback.
type Summary struct {
	Total    int
	Restored int
	Failed   int
}

// Manager restores titles.
type Manager struct {
	store   *store.Store
	writer  TitleWriter
	auditor Auditor
	logger  *slog.Logger
}

// NewManager wires a rollback manager.
func NewManager(st *store.Store, writer TitleWriter, auditor Auditor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:   st,
		writer:  writer,
		auditor: auditor,
		logger:  logging.NewComponentLogger(logger, "rollback"),
	}
}

// Candidates lists completed jobs whose title actually changed, which are
// the only jobs a rollback can act on.
func (m *Manager) Candidates(ctx context.Context) ([]*store.Job, error) {
	completed, err := m.store.ListByStatus(ctx, store.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("list completed jobs: %w", err)
	}
	candidates := completed[:0]
	for _, job := range completed {
		if job.NewTitle != "" && job.NewTitle != job.OriginalTitle {
			candidates = append(candidates, job)
		}
	}
	return candidates, nil
}

// RollbackItem restores one video's original title.
func (m *Manager) RollbackItem(ctx context.Context, videoID string) error {
	job, err := m.store.GetJob(ctx, videoID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", videoID, err)
	}
	if job == nil {
		return fmt.Errorf("no job recorded for %s", videoID)
	}
	if job.OriginalTitle == "" || job.NewTitle == "" {
		return fmt.Errorf("job %s has no rename to undo", videoID)
	}

	if err := m.writer.UpdateTitle(ctx, videoID, job.OriginalTitle); err != nil {
		return fmt.Errorf("restore title for %s: %w", videoID, err)
	}

	restored := job.OriginalTitle
	if _, err := m.store.UpdateStatus(ctx, videoID, store.StatusCompleted, store.StatusUpdate{
		NewTitle: &restored,
	}); err != nil {
		return fmt.Errorf("record rollback for %s: %w", videoID, err)
	}

	if m.auditor != nil {
		m.auditor.AppendRollback(ctx, videoID, restored)
	}
	m.logger.Info("title restored",
		logging.String(logging.FieldVideoID, videoID),
		logging.String("title", restored))
	return nil
}

// RollbackBatch restores every candidate sequentially, tallying failures
// instead of stopping at the first one.
func (m *Manager) RollbackBatch(ctx context.Context) (Summary, error) {
	candidates, err := m.Candidates(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Total: len(candidates)}
	for _, job := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := m.RollbackItem(ctx, job.VideoID); err != nil {
			summary.Failed++
			m.logger.Warn("rollback failed",
				logging.String(logging.FieldVideoID, job.VideoID),
				logging.Error(err))
			continue
		}
		summary.Restored++
	}
	return summary, nil
}
