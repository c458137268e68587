package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const cacheColumns = "cache_key, video_id, game_name, boss_name, source, created_at, expires_at, accessed_count, last_accessed"

// DeriveCacheKey produces the deterministic cache key for a (video, game)
// pair. A cryptographic hash keeps distinct pairs collision-free.
func DeriveCacheKey(videoID, gameName string) string {
	sum := sha256.Sum256([]byte(videoID + ":" + gameName))
	return hex.EncodeToString(sum[:])
}

// CachedBoss returns the unexpired cache entry for a (video, game) pair, or
// nil when absent or expired. A hit bumps the access count and last-access
// timestamp; the returned snapshot reflects the stored values before the bump.
func (s *Store) CachedBoss(ctx context.Context, videoID, gameName string) (*CacheEntry, error) {
	key := DeriveCacheKey(videoID, gameName)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+cacheColumns+` FROM boss_cache
         WHERE cache_key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key,
		now,
	)
	entry, err := scanCacheEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached boss: %w", err)
	}

	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE boss_cache SET accessed_count = accessed_count + 1, last_accessed = ? WHERE cache_key = ?`,
		now,
		key,
	); err != nil {
		return nil, fmt.Errorf("bump cache access: %w", err)
	}
	return entry, nil
}

// CacheBoss stores an identification result for a (video, game) pair,
// overwriting any prior entry. The expiry is now+ttl; a zero or negative ttl
// writes an entry that is already expired and never serves a hit.
func (s *Store) CacheBoss(ctx context.Context, videoID, gameName, bossName, source string, ttl time.Duration) error {
	key := DeriveCacheKey(videoID, gameName)
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO boss_cache
            (cache_key, video_id, game_name, boss_name, source, created_at, expires_at, accessed_count, last_accessed)
         VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		key,
		videoID,
		gameName,
		bossName,
		source,
		now.Format(time.RFC3339Nano),
		expiresAt.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("cache boss: %w", err)
	}
	return nil
}

// ClearCache removes every cache entry, reporting how many were removed and
// how many of those had already expired.
func (s *Store) ClearCache(ctx context.Context) (total int, expired int, err error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM boss_cache WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		now,
	)
	if err := row.Scan(&expired); err != nil {
		return 0, 0, fmt.Errorf("count expired cache: %w", err)
	}

	row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM boss_cache`)
	if err := row.Scan(&total); err != nil {
		return 0, 0, fmt.Errorf("count cache: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM boss_cache`); err != nil {
		return 0, 0, fmt.Errorf("clear cache: %w", err)
	}
	return total, expired, nil
}

// SweepExpiredCache deletes only entries whose expiry has passed.
func (s *Store) SweepExpiredCache(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM boss_cache WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep expired cache: %w", err)
	}
	return res.RowsAffected()
}

// CacheStatistics summarizes the cache contents.
func (s *Store) CacheStatistics(ctx context.Context) (CacheStats, error) {
	var stats CacheStats
	now := time.Now().UTC().Format(time.RFC3339Nano)

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM boss_cache`)
	if err := row.Scan(&stats.Total); err != nil {
		return CacheStats{}, fmt.Errorf("cache statistics: %w", err)
	}

	row = s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM boss_cache WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		now,
	)
	if err := row.Scan(&stats.Expired); err != nil {
		return CacheStats{}, fmt.Errorf("cache statistics: %w", err)
	}
	stats.Active = stats.Total - stats.Expired

	row = s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(accessed_count), 0) FROM boss_cache`)
	if err := row.Scan(&stats.MaxAccessCount); err != nil {
		return CacheStats{}, fmt.Errorf("cache statistics: %w", err)
	}
	return stats, nil
}

func scanCacheEntry(scanner interface{ Scan(dest ...any) error }) (*CacheEntry, error) {
	var (
		cacheKey     string
		videoID      string
		gameName     string
		bossName     string
		source       string
		createdRaw   string
		expiresRaw   sql.NullString
		accessed     int
		lastAccessed sql.NullString
	)

	if err := scanner.Scan(
		&cacheKey,
		&videoID,
		&gameName,
		&bossName,
		&source,
		&createdRaw,
		&expiresRaw,
		&accessed,
		&lastAccessed,
	); err != nil {
		return nil, err
	}

	entry := &CacheEntry{
		CacheKey:    cacheKey,
		VideoID:     videoID,
		GameName:    gameName,
		BossName:    bossName,
		Source:      source,
		AccessCount: accessed,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	if expiresRaw.Valid {
		if expires, err := parseTimeString(expiresRaw.String); err == nil {
			entry.ExpiresAt = &expires
		}
	}
	if lastAccessed.Valid {
		if at, err := parseTimeString(lastAccessed.String); err == nil {
			entry.LastAccessed = &at
		}
	}
	return entry, nil
}
