package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map calls fn for every item with at most limit calls in flight and returns
// the results in input order. fn should record its own failures in the result;
// an error returned from fn cancels the remaining calls and is returned.
// Items not started before ctx is cancelled are left as zero values.
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}
	if limit <= 0 {
		limit = 1
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for i, item := range items {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			result, err := fn(groupCtx, item)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
