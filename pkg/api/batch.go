package api

import (
	"context"
	"fmt"
	"sync"
)

// BatchPrepFunc yields the ordered collection a batch node fans out over.
type BatchPrepFunc func(ctx context.Context, shared Shared, params Params) ([]any, error)

// ExecItemFunc processes a single element of the batch. It must not touch
// the shared store: aggregation happens in the finalize phase, and the
// engine may run items concurrently when parallelism is enabled.
type ExecItemFunc func(ctx context.Context, item any) (any, error)

// BatchPostFunc aggregates per-element results into the shared store.
// results is ordered like items regardless of execution order.
type BatchPostFunc func(ctx context.Context, shared Shared, params Params, items, results []any) (Action, error)

// ItemFallbackFunc produces a substitute result for one element whose
// execution exhausted its attempts.
type ItemFallbackFunc func(ctx context.Context, item any, execErr error) (any, error)

// BatchNode fans its execute phase out over an ordered collection. Prep
// yields the collection, Exec runs once per element with per-element
// retry/fallback, Post receives the full ordered result list.
//
// Retry is configured on the node itself (SetRetry) and applies per
// element, not to the batch as a whole. One element exhausting its
// attempts without a fallback fails the entire invocation; there is no
// silent partial success.
//
// SetParallelism enables concurrent element execution on a bounded worker
// pool. Result order still equals input order. Parallel execution is only
// sound because ExecItem has no shared-store access; keep it that way.
type BatchNode struct {
	prep         BatchPrepFunc
	execItem     ExecItemFunc
	post         BatchPostFunc
	itemFallback ItemFallbackFunc
	retry        *RetryPolicy
	parallelism  int
}

var _ Node = (*BatchNode)(nil)

// NewBatchNode returns an empty BatchNode ready for chained configuration.
func NewBatchNode() *BatchNode {
	return &BatchNode{}
}

// SetPrep sets the collection-producing prepare phase.
func (b *BatchNode) SetPrep(f BatchPrepFunc) *BatchNode {
	b.prep = f
	return b
}

// SetExecItem sets the per-element execute phase.
func (b *BatchNode) SetExecItem(f ExecItemFunc) *BatchNode {
	b.execItem = f
	return b
}

// SetPost sets the aggregating finalize phase.
func (b *BatchNode) SetPost(f BatchPostFunc) *BatchNode {
	b.post = f
	return b
}

// SetItemFallback sets the per-element fallback.
func (b *BatchNode) SetItemFallback(f ItemFallbackFunc) *BatchNode {
	b.itemFallback = f
	return b
}

// SetRetry sets the per-element retry policy.
func (b *BatchNode) SetRetry(policy RetryPolicy) *BatchNode {
	p := policy
	b.retry = &p
	return b
}

// SetParallelism bounds the worker pool used for element execution.
// Values below 2 keep execution sequential.
func (b *BatchNode) SetParallelism(n int) *BatchNode {
	b.parallelism = n
	return b
}

func (b *BatchNode) Prep(ctx context.Context, shared Shared, params Params) (any, error) {
	if b.prep == nil {
		return []any{}, nil
	}
	items, err := b.prep(ctx, shared, params)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []any{}
	}
	return items, nil
}

// Exec runs the per-element phase over the prepared collection. Retry and
// fallback are handled here, per element, so the engine's node-level retry
// never wraps a whole batch.
func (b *BatchNode) Exec(ctx context.Context, prepResult any) (any, error) {
	items, ok := prepResult.([]any)
	if !ok {
		return nil, fmt.Errorf("batch prep returned %T, want []any", prepResult)
	}
	if len(items) == 0 {
		return []any{}, nil
	}
	if b.parallelism > 1 {
		return b.execParallel(ctx, items)
	}
	results := make([]any, len(items))
	for i, item := range items {
		res, err := b.execOne(ctx, i, item)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

func (b *BatchNode) Post(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error) {
	items, _ := prepResult.([]any)
	results, _ := execResult.([]any)
	if items == nil {
		items = []any{}
	}
	if results == nil {
		results = []any{}
	}
	if b.post == nil {
		return DefaultAction, nil
	}
	return b.post(ctx, shared, params, items, results)
}

// execOne runs a single element through retry and fallback.
func (b *BatchNode) execOne(ctx context.Context, index int, item any) (any, error) {
	attempts := b.retry.Attempts()

	var (
		res     any
		lastErr error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, lastErr = b.callExecItem(ctx, item)
		if lastErr == nil {
			return res, nil
		}
		if attempt < attempts {
			if err := b.retry.Sleep(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}

	if b.itemFallback != nil {
		res, err := b.itemFallback(ctx, item, lastErr)
		if err != nil {
			return nil, &ElementError{Index: index, Item: item, Err: err}
		}
		return res, nil
	}
	return nil, &ElementError{Index: index, Item: item, Err: lastErr}
}

func (b *BatchNode) callExecItem(ctx context.Context, item any) (any, error) {
	if b.execItem == nil {
		return item, nil
	}
	return b.execItem(ctx, item)
}

// execParallel dispatches elements to a bounded worker pool and reassembles
// results in input order. The first element failure cancels the rest.
func (b *BatchNode) execParallel(ctx context.Context, items []any) ([]any, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := b.parallelism
	if workers > len(items) {
		workers = len(items)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	results := make([]any, len(items))
	sem := make(chan struct{}, workers)

	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item any) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := b.execOne(ctx, i, item)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil || isLowerElement(err, firstErr) {
					firstErr = err
				}
				cancel()
				return
			}
			results[i] = res
		}(i, item)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// isLowerElement keeps the error report deterministic under parallel
// execution: prefer the failure with the lowest element index.
func isLowerElement(candidate, current error) bool {
	var a, b *ElementError
	if !asElementError(candidate, &a) || !asElementError(current, &b) {
		return false
	}
	return a.Index < b.Index
}
