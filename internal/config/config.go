package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// YouTube contains configuration for the channel being maintained.
type YouTube struct {
	APIToken       string `toml:"api_token"`
	BaseURL        string `toml:"base_url"`
	SpreadsheetID  string `toml:"spreadsheet_id"`
	SheetsBaseURL  string `toml:"sheets_base_url"`
	RateLimitDelay int    `toml:"rate_limit_delay"`
}

// Vision contains settings for the image classifier API.
type Vision struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaxTokens      int    `toml:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// BossList contains settings for the boss candidate source.
type BossList struct {
	SourceURL          string `toml:"source_url"`
	CacheExpiryMinutes int    `toml:"cache_expiry_minutes"`
}

// Frames contains frame sampling settings for the expensive probe.
type Frames struct {
	Timestamps  []int  `toml:"timestamps"`
	Quality     string `toml:"quality"`
	ClipSeconds int    `toml:"clip_seconds"`
}

// Retry bounds the identification retry loop.
type Retry struct {
	MaxAttempts      int `toml:"max_attempts"`
	BaseDelaySeconds int `toml:"base_delay_seconds"`
	MaxDelaySeconds  int `toml:"max_delay_seconds"`
}

// Cache controls the boss identification result cache.
type Cache struct {
	Enabled    bool `toml:"enabled"`
	ExpiryDays int  `toml:"expiry_days"`
}

// Parallel controls worker-pool batch processing.
type Parallel struct {
	Enabled bool `toml:"enabled"`
	Workers int  `toml:"workers"`
}

// Processing groups pipeline tuning knobs.
type Processing struct {
	Frames   Frames   `toml:"frames"`
	Retry    Retry    `toml:"retry"`
	Cache    Cache    `toml:"cache"`
	Parallel Parallel `toml:"parallel"`
}

// Logging controls log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration document.
type Config struct {
	Paths          Paths      `toml:"paths"`
	YouTube        YouTube    `toml:"youtube"`
	Vision         Vision     `toml:"vision"`
	BossList       BossList   `toml:"bosslist"`
	Processing     Processing `toml:"processing"`
	Logging        Logging    `toml:"logging"`
	SoulslikeGames []string   `toml:"soulslike_games"`
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "bosstitler.toml"
	}
	return filepath.Join(home, ".config", "bosstitler", "config.toml")
}

// Load reads the config file at path, overlaying it onto defaults. A missing
// file is not an error when path is empty or the default location; explicit
// paths must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg.resolveEnv()
			cfg.expandPaths()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.resolveEnv()
	cfg.expandPaths()
	return &cfg, nil
}

// WriteSample writes the annotated sample configuration to path.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite file backing both the job store and the
// result cache.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "videos.db")
}

// resolveEnv replaces ${VAR} placeholders in secret fields with environment
// values when present; unresolved placeholders are caught by Validate.
func (c *Config) resolveEnv() {
	c.Vision.APIKey = resolvePlaceholder(c.Vision.APIKey)
	c.YouTube.APIToken = resolvePlaceholder(c.YouTube.APIToken)
}

func resolvePlaceholder(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") {
		if env := os.Getenv(trimmed[2 : len(trimmed)-1]); env != "" {
			return env
		}
	}
	return value
}

func (c *Config) expandPaths() {
	c.Paths.DataDir = expandHome(c.Paths.DataDir)
	c.Paths.LogDir = expandHome(c.Paths.LogDir)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}
