package fetcher

import (
	"context"
	"fmt"
	"time"

	"holderscan/internal/logic/retry"

	"golang.org/x/sync/errgroup"
)

// FetchInBatches calls fn for every item, batchSize at a time, each call wrapped
// by the retry policy. Results keep the order of items. The first failure aborts
// the remaining work.
func FetchInBatches[T, R any](
	ctx context.Context,
	items []T,
	fn func(ctx context.Context, item T) (R, error),
	policy retry.Policy,
	batchSize int,
	wait time.Duration,
) ([]R, error) {
	if batchSize <= 0 {
		batchSize = int(DefaultBatchSize)
	}

	results := make([]R, len(items))
	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))

		g, gCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				res, err := retry.Do(gCtx, policy, fmt.Sprintf("batch item %d", i), func(ctx context.Context) (R, error) {
					return fn(ctx, items[i])
				})
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if end < len(items) && wait > 0 {
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}
	return results, nil
}
