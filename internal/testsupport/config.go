package testsupport

import (
	"path/filepath"
	"testing"

	"bosstitler/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Vision.APIKey = "test"
	cfg.YouTube.APIToken = "test"
	cfg.Processing.Retry.BaseDelaySeconds = 0
	cfg.YouTube.RateLimitDelay = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("config.EnsureDirectories: %v", err)
	}
	return &cfg
}

// WithWorkers sets the parallel worker count on the test config.
func WithWorkers(count int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Processing.Parallel.Enabled = true
		cfg.Processing.Parallel.Workers = count
	}
}

// WithCacheDisabled turns the result cache off.
func WithCacheDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Processing.Cache.Enabled = false
	}
}
