package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const jobColumns = "video_id, original_title, new_title, game_name, boss_name, status, attempts, last_attempt, error_message, created_at, updated_at"

// AddJob inserts a new pending job. It is a no-op returning false when the
// video is already tracked; the existing record is left untouched.
func (s *Store) AddJob(ctx context.Context, videoID, originalTitle, gameName string) (bool, error) {
	if strings.TrimSpace(videoID) == "" {
		return false, errors.New("video id required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO processed_videos
            (video_id, original_title, game_name, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		videoID,
		originalTitle,
		nullableString(gameName),
		StatusPending,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("insert job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetJob fetches a job by video identifier. A missing job returns nil, nil.
func (s *Store) GetJob(ctx context.Context, videoID string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM processed_videos WHERE video_id = ?`, videoID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// UpdateStatus transitions a job to status, bumping the attempt counter and
// both timestamps in the same statement. Fields left nil in update are not
// overwritten. Returns false when the job does not exist.
func (s *Store) UpdateStatus(ctx context.Context, videoID string, status Status, update StatusUpdate) (bool, error) {
	if _, ok := statusSet[status]; !ok {
		return false, fmt.Errorf("unknown status %q", status)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	sets := []string{"status = ?", "updated_at = ?", "last_attempt = ?", "attempts = attempts + 1"}
	args := []any{status, now, now}

	if update.NewTitle != nil {
		sets = append(sets, "new_title = ?")
		args = append(args, *update.NewTitle)
	}
	if update.BossName != nil {
		sets = append(sets, "boss_name = ?")
		args = append(args, *update.BossName)
	}
	if update.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *update.ErrorMessage)
	}
	args = append(args, videoID)

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE processed_videos SET `+strings.Join(sets, ", ")+` WHERE video_id = ?`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("update job status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListByStatus returns jobs matching a status in stable insertion order.
func (s *Store) ListByStatus(ctx context.Context, status Status) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM processed_videos WHERE status = ? ORDER BY created_at, video_id`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListFailedRetryable returns failed jobs still under the attempt ceiling,
// oldest attempt first.
func (s *Store) ListFailedRetryable(ctx context.Context, maxAttempts int) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM processed_videos
         WHERE status = ? AND attempts < ?
         ORDER BY last_attempt ASC`,
		StatusFailed,
		maxAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("query retryable: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ResetStuckProcessing returns any job left in processing by a prior crash
// back to pending. Run once at startup before dispatching new work.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE processed_videos SET status = ?, updated_at = ? WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck processing: %w", err)
	}
	return res.RowsAffected()
}

// Statistics returns job counts grouped by status plus the total.
func (s *Store) Statistics(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM processed_videos GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("job statistics: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		stats.Total += count
		switch status {
		case StatusPending:
			stats.Pending += count
		case StatusProcessing:
			stats.Processing += count
		case StatusCompleted:
			stats.Completed += count
		case StatusFailed:
			stats.Failed += count
		}
	}
	return stats, rows.Err()
}

// GamesSummary aggregates tracked videos per game, busiest games first.
func (s *Store) GamesSummary(ctx context.Context) ([]GameSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT game_name, COUNT(1),
                SUM(CASE WHEN status = ? THEN 1 ELSE 0 END)
         FROM processed_videos
         WHERE game_name IS NOT NULL
         GROUP BY game_name
         ORDER BY COUNT(1) DESC, game_name`,
		StatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("games summary: %w", err)
	}
	defer rows.Close()

	var summaries []GameSummary
	for rows.Next() {
		var summary GameSummary
		if err := rows.Scan(&summary.GameName, &summary.Total, &summary.Completed); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// DeleteJob removes a job record. Used by explicit maintenance only; the
// forward pipeline never deletes.
func (s *Store) DeleteJob(ctx context.Context, videoID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM processed_videos WHERE video_id = ?`, videoID)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		videoID       string
		originalTitle string
		newTitle      sql.NullString
		gameName      sql.NullString
		bossName      sql.NullString
		statusStr     string
		attempts      int
		lastAttempt   sql.NullString
		errorMessage  sql.NullString
		createdRaw    string
		updatedRaw    string
	)

	if err := scanner.Scan(
		&videoID,
		&originalTitle,
		&newTitle,
		&gameName,
		&bossName,
		&statusStr,
		&attempts,
		&lastAttempt,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		VideoID:       videoID,
		OriginalTitle: originalTitle,
		NewTitle:      newTitle.String,
		GameName:      gameName.String,
		BossName:      bossName.String,
		Status:        Status(statusStr),
		Attempts:      attempts,
		ErrorMessage:  errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	if lastAttempt.Valid {
		if at, err := parseTimeString(lastAttempt.String); err == nil {
			job.LastAttempt = &at
		}
	}
	return job, nil
}
