package store

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS processed_videos (
        video_id TEXT PRIMARY KEY,
        original_title TEXT NOT NULL,
        new_title TEXT,
        game_name TEXT,
        boss_name TEXT,
        status TEXT NOT NULL CHECK(status IN ('pending', 'processing', 'completed', 'failed')),
        attempts INTEGER NOT NULL DEFAULT 0,
        last_attempt TEXT,
        error_message TEXT,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_videos_status ON processed_videos(status)`,
	`CREATE INDEX IF NOT EXISTS idx_videos_game ON processed_videos(game_name)`,
	`CREATE TABLE IF NOT EXISTS boss_cache (
        cache_key TEXT PRIMARY KEY,
        video_id TEXT NOT NULL,
        game_name TEXT NOT NULL,
        boss_name TEXT NOT NULL,
        source TEXT NOT NULL,
        created_at TEXT NOT NULL,
        expires_at TEXT,
        accessed_count INTEGER NOT NULL DEFAULT 0,
        last_accessed TEXT
    )`,
	`CREATE INDEX IF NOT EXISTS idx_cache_video ON boss_cache(video_id)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_expires ON boss_cache(expires_at)`,
}
