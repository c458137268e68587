package identify

import (
	"time"

	"bosstitler/internal/config"
)

// Policy bounds the retry loop around classifier calls.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// PolicyFromConfig reads the retry section of the configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		MaxAttempts: cfg.Processing.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Processing.Retry.BaseDelaySeconds) * time.Second,
		MaxDelay:    time.Duration(cfg.Processing.Retry.MaxDelaySeconds) * time.Second,
	}
}

// Delay returns the wait before retry number attempt, doubling from the base
// and clamped at the maximum. Attempt zero is the first retry.
func (p Policy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
