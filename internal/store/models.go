package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a tracked video.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Job is the durable record of one video's processing lifecycle.
type Job struct {
	VideoID       string
	OriginalTitle string
	NewTitle      string
	GameName      string
	BossName      string
	Status        Status
	Attempts      int
	LastAttempt   *time.Time
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StatusUpdate carries the optional fields of an UpdateStatus call. Nil
// pointers leave the stored value untouched.
type StatusUpdate struct {
	NewTitle     *string
	BossName     *string
	ErrorMessage *string
}

// Stats aggregates job counts per status.
type Stats struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// GameSummary counts tracked videos per game.
type GameSummary struct {
	GameName  string
	Total     int
	Completed int
}

// CacheEntry is one cached boss identification result.
type CacheEntry struct {
	CacheKey     string
	VideoID      string
	GameName     string
	BossName     string
	Source       string
	CreatedAt    time.Time
	ExpiresAt    *time.Time
	AccessCount  int
	LastAccessed *time.Time
}

// CacheStats summarizes the result cache.
type CacheStats struct {
	Total          int
	Active         int
	Expired        int
	MaxAccessCount int
}
