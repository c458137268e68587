package workflow

import (
	"context"
	"time"
)

// Summary tallies one run.
type Summary struct {
	Total     int
	Completed int
	Failed    int
	Skipped   int
}

func (s *Summary) record(outcome Outcome) {
	s.Total++
	switch outcome {
	case OutcomeCompleted:
		s.Completed++
	case OutcomeFailed:
		s.Failed++
	default:
		s.Skipped++
	}
}

// RunSequential processes items one at a time, pausing between items to
// respect API quotas. Item failures are tallied, not propagated; only
// context cancellation aborts the batch.
func (p *Processor) RunSequential(ctx context.Context, items []Item, opts Options, pause time.Duration) (Summary, error) {
	var summary Summary
	for idx, item := range items {
		if idx > 0 && pause > 0 {
			if err := sleepContext(ctx, pause); err != nil {
				return summary, err
			}
		}
		outcome, err := p.ProcessItem(ctx, item, opts)
		if err != nil && ctx.Err() != nil {
			summary.record(OutcomeFailed)
			return summary, ctx.Err()
		}
		summary.record(outcome)
	}
	return summary, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
