package workflow

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RunParallel processes items through a bounded worker pool. Per-item
// failures are tallied rather than cancelling the group; the pool drains
// every item unless the context is cancelled.
func (p *Processor) RunParallel(ctx context.Context, items []Item, opts Options, workers int) (Summary, error) {
	if workers < 1 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		summary Summary
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for _, item := range items {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				mu.Lock()
				summary.record(OutcomeSkipped)
				mu.Unlock()
				return nil
			}
			outcome, err := p.ProcessItem(groupCtx, item, opts)
			mu.Lock()
			summary.record(outcome)
			mu.Unlock()
			if err != nil && groupCtx.Err() != nil {
				return groupCtx.Err()
			}
			return nil
		})
	}
	err := group.Wait()
	return summary, err
}
