// Package fileproc provides bounded concurrent processing of file lists
// and other ordered work items.
package fileproc

import (
	"context"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x suits mixed I/O and CGO workloads.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each item is processed.
type ProgressFunc func()

// Workers returns n, or 2x NumCPU when n <= 0.
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU() * DefaultWorkerMultiplier
	}
	return n
}

// Map runs fn over items with at most workers goroutines and returns the
// results in input order, regardless of completion order. Items not started
// before ctx is cancelled keep their zero value and ctx.Err() is returned.
func Map[I, T any](ctx context.Context, items []I, workers int, fn func(context.Context, I) T, onProgress ProgressFunc) ([]T, error) {
	return MapWithResource(ctx, items, workers,
		func() struct{} { return struct{}{} },
		nil,
		func(ctx context.Context, _ struct{}, item I) T { return fn(ctx, item) },
		onProgress,
	)
}

// MapWithResource is Map with a per-worker resource, such as a parser that
// must not be shared between goroutines. init is called at most once per
// worker; release, when non-nil, is called for each created resource after
// all work finishes.
func MapWithResource[I, T, R any](
	ctx context.Context,
	items []I,
	workers int,
	init func() R,
	release func(R),
	fn func(context.Context, R, I) T,
	onProgress ProgressFunc,
) ([]T, error) {
	results := make([]T, len(items))
	if len(items) == 0 {
		return results, ctx.Err()
	}

	workers = min(Workers(workers), len(items))
	resources := make(chan R, workers)
	for range workers {
		resources <- init()
	}

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i, item := range items {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := <-resources
			defer func() { resources <- r }()

			results[i] = fn(ctx, r, item)
			if onProgress != nil {
				onProgress()
			}
			return nil
		})
	}
	err := p.Wait()

	close(resources)
	for r := range resources {
		if release != nil {
			release(r)
		}
	}

	if err != nil {
		return results, err
	}
	return results, ctx.Err()
}
