// Package concurrent fans bounded work out over a slice.
package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit applies when a caller passes a non-positive limit.
const DefaultLimit = 8

// Skip is told about an item whose call failed. It may run concurrently.
type Skip[T any] func(item T, err error)

// Gather calls fn for every item with at most limit calls in flight and
// returns the successful results in input order. A failed item is passed to
// skip and left out; only cancellation of ctx fails the whole call.
func Gather[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error), skip Skip[T]) ([]R, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	type slot struct {
		val R
		ok  bool
	}
	slots := make([]slot, len(items))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			v, err := fn(ctx, item)
			if err != nil {
				if skip != nil {
					skip(item, err)
				}
				return nil
			}
			slots[i] = slot{val: v, ok: true}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]R, 0, len(items))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.val)
		}
	}
	return out, nil
}
