package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateVision(); err != nil {
		return err
	}
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateVision() error {
	key := strings.TrimSpace(c.Vision.APIKey)
	if key == "" || strings.HasPrefix(key, "${") {
		return errors.New("vision.api_key is required (set OPENAI_API_KEY or edit the config file)")
	}
	if c.Vision.MaxTokens <= 0 {
		return errors.New("vision.max_tokens must be positive")
	}
	if c.Vision.TimeoutSeconds <= 0 {
		return errors.New("vision.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateYouTube() error {
	token := strings.TrimSpace(c.YouTube.APIToken)
	if token == "" || strings.HasPrefix(token, "${") {
		return errors.New("youtube.api_token is required (set YOUTUBE_API_TOKEN or edit the config file)")
	}
	if c.YouTube.RateLimitDelay < 0 {
		return errors.New("youtube.rate_limit_delay must not be negative")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	retry := c.Processing.Retry
	if retry.MaxAttempts < 1 {
		return errors.New("processing.retry.max_attempts must be at least 1")
	}
	if retry.BaseDelaySeconds < 0 || retry.MaxDelaySeconds < 0 {
		return errors.New("processing.retry delays must not be negative")
	}
	if retry.MaxDelaySeconds > 0 && retry.BaseDelaySeconds > retry.MaxDelaySeconds {
		return errors.New("processing.retry.base_delay_seconds must not exceed max_delay_seconds")
	}
	if len(c.Processing.Frames.Timestamps) == 0 {
		return errors.New("processing.frames.timestamps must list at least one sample point")
	}
	for _, ts := range c.Processing.Frames.Timestamps {
		if ts < 0 {
			return fmt.Errorf("processing.frames.timestamps contains negative value %d", ts)
		}
	}
	if c.Processing.Parallel.Enabled && c.Processing.Parallel.Workers < 1 {
		return errors.New("processing.parallel.workers must be at least 1 when parallel is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}
