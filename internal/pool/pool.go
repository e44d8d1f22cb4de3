// Package pool provides a bounded concurrent fan-out over a slice of items.
package pool

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Outcome is the settled result of one item: a value, or the failure that
// produced none. A failed item never aborts the batch; its error is
// recorded here for the caller's failure policy to interpret.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Run dispatches op across at most limit concurrent workers pulling from a
// shared cursor over items. Every index is claimed exactly once and its
// outcome is written to the matching slot, so output order is stable
// regardless of completion order. Run returns only after every in-flight
// op has settled.
func Run[I, T any](ctx context.Context, items []I, limit int, op func(context.Context, I) (T, error)) []Outcome[T] {
	return RunWithHook(ctx, items, limit, op, nil)
}

// RunWithHook behaves like Run and additionally invokes settled with the
// item's index after each op completes, for progress accounting.
func RunWithHook[I, T any](ctx context.Context, items []I, limit int, op func(context.Context, I) (T, error), settled func(index int)) []Outcome[T] {
	outcomes := make([]Outcome[T], len(items))
	if len(items) == 0 {
		return outcomes
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > len(items) {
		limit = len(items)
	}

	var cursor atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < limit; w++ {
		g.Go(func() error {
			for {
				idx := int(cursor.Add(1)) - 1
				if idx >= len(items) {
					return nil
				}
				value, err := op(ctx, items[idx])
				outcomes[idx] = Outcome[T]{Value: value, Err: err}
				if settled != nil {
					settled(idx)
				}
			}
		})
	}
	// Workers never return errors; per-item failures live in the outcomes.
	_ = g.Wait()
	return outcomes
}
