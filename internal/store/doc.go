// Package store persists per-video job state and cached boss identification
// results in a single SQLite database. All mutations are single statements so
// concurrent workers can share one store safely.
package store
