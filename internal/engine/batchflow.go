package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tverho/grafo/pkg/api"
)

// BatchFlowPrep yields the ordered parameter bundles a batch flow fans
// out over, one per sub-graph run.
type BatchFlowPrep func(ctx context.Context, shared api.Shared, params api.Params) ([]api.Params, error)

// BatchFlowConfig carries construction-time settings for a batch flow.
type BatchFlowConfig struct {
	// Observer receives the batch flow's own run events. The sub-graph
	// fires its own events per element run.
	Observer api.Observer

	// Parallelism bounds concurrent sub-graph runs. Values below 2 keep
	// the runs sequential, which is the only mode in which the default
	// single-writer shared store is safe.
	Parallelism int
}

// BatchFlowOption customizes batch flow construction.
type BatchFlowOption func(*BatchFlowConfig)

// WithBatchObserver attaches an observer to the batch flow itself.
func WithBatchObserver(o api.Observer) BatchFlowOption {
	return func(c *BatchFlowConfig) { c.Observer = o }
}

// WithBatchParallelism enables concurrent sub-graph runs on a bounded
// pool. Enabling this shifts the shared-store correctness burden to the
// caller: either confine each run's writes to disjoint keys or pass a
// store built with NewSyncedShared.
func WithBatchParallelism(n int) BatchFlowOption {
	return func(c *BatchFlowConfig) { c.Parallelism = n }
}

// BatchFlow re-runs a sub-graph once per element of a prepared
// collection. Every run gets the same shared store and a parameter
// bundle derived for its element (merged over the batch flow's own run
// params). The batch flow performs no aggregation beyond sequencing the
// runs: by convention each sub-graph run writes its own result into a
// caller-designated location in the shared store.
type BatchFlow struct {
	name string
	sub  *Graph
	prep BatchFlowPrep
	cfg  BatchFlowConfig
}

var _ api.Flow = (*BatchFlow)(nil)

// NewBatchFlow wraps sub in a batch flow. prep derives the per-element
// parameter bundles; a nil prep yields a single empty-params run.
func NewBatchFlow(name string, sub *Graph, prep BatchFlowPrep, opts ...BatchFlowOption) *BatchFlow {
	var cfg BatchFlowConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Observer == nil {
		cfg.Observer = api.NoopObserver{}
	}
	return &BatchFlow{name: name, sub: sub, prep: prep, cfg: cfg}
}

// Name returns the batch flow's name.
func (f *BatchFlow) Name() string { return f.name }

// Run derives the element parameter bundles and executes the sub-graph
// once per element against the same shared store.
func (f *BatchFlow) Run(ctx context.Context, shared api.Shared, params api.Params) (api.Shared, error) {
	if shared == nil {
		shared = api.NewShared(nil)
	}

	run := api.RunInfo{ID: uuid.NewString(), Graph: f.name}
	obs := f.cfg.Observer
	obs.OnRunStart(ctx, run)

	if err := f.execute(ctx, shared, params); err != nil {
		obs.OnRunFailed(ctx, run, err)
		return shared, err
	}
	obs.OnRunCompleted(ctx, run)
	return shared, nil
}

func (f *BatchFlow) execute(ctx context.Context, shared api.Shared, params api.Params) error {
	elems := []api.Params{{}}
	if f.prep != nil {
		var err error
		elems, err = f.prep(ctx, shared, params)
		if err != nil {
			return &api.RunError{
				Graph:   f.name,
				Node:    f.sub.Name(),
				Phase:   api.PhasePrep,
				Element: -1,
				Err:     err,
			}
		}
	}

	if f.cfg.Parallelism > 1 {
		return f.runParallel(ctx, shared, params, elems)
	}

	for i, elem := range elems {
		if err := ctx.Err(); err != nil {
			return f.elementError(i, err)
		}
		if _, err := f.sub.Run(ctx, shared, params.Merge(elem)); err != nil {
			return f.elementError(i, err)
		}
	}
	return nil
}

// runParallel dispatches sub-graph runs to a bounded pool. The first
// failure cancels the remaining runs; the lowest failing element index
// is reported for determinism.
func (f *BatchFlow) runParallel(ctx context.Context, shared api.Shared, params api.Params, elems []api.Params) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := f.cfg.Parallelism
	if workers > len(elems) {
		workers = len(elems)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		failedAt  = -1
		failedErr error
	)
	sem := make(chan struct{}, workers)

	for i, elem := range elems {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, elem api.Params) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := f.sub.Run(ctx, shared, params.Merge(elem))
			if err == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if failedAt < 0 || i < failedAt {
				failedAt = i
				failedErr = err
			}
			cancel()
		}(i, elem)
	}
	wg.Wait()

	if failedErr != nil {
		return f.elementError(failedAt, failedErr)
	}
	return nil
}

func (f *BatchFlow) elementError(index int, err error) error {
	return &api.RunError{
		Graph:   f.name,
		Node:    f.sub.Name(),
		Phase:   api.PhaseExec,
		Element: index,
		Err:     err,
	}
}
