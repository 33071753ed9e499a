package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tverho/grafo/pkg/api"
)

// nodeEntry pairs a registered node with its per-registration settings.
type nodeEntry struct {
	node api.Node
	cfg  api.NodeConfig
}

// Graph is the concrete api.Graph implementation: registered nodes, a
// transition table, and a sequential execution loop.
//
// Construction (Register / SetStart / On) is not safe for concurrent use;
// build the graph fully before running it. Run itself is safe to call from
// multiple goroutines as long as each call gets its own shared store.
type Graph struct {
	name        string
	cfg         api.GraphConfig
	nodes       map[string]*nodeEntry
	start       string
	transitions map[string]map[api.Action]string
}

var _ api.Graph = (*Graph)(nil)

// NewGraph creates an empty graph with the given name and options.
func NewGraph(name string, opts ...api.GraphOption) *Graph {
	var cfg api.GraphConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Observer == nil {
		cfg.Observer = api.NoopObserver{}
	}
	return &Graph{
		name:        name,
		cfg:         cfg,
		nodes:       make(map[string]*nodeEntry),
		transitions: make(map[string]map[api.Action]string),
	}
}

// Name returns the graph's name.
func (g *Graph) Name() string { return g.name }

// Register adds a node under a unique identifier. The first registered
// node becomes the start node unless SetStart is called.
func (g *Graph) Register(id string, node api.Node, opts ...api.NodeOption) error {
	if id == "" {
		return fmt.Errorf("graph %q: node identifier must not be empty", g.name)
	}
	if id == api.Terminal {
		return fmt.Errorf("graph %q: node identifier %q is reserved", g.name, id)
	}
	if node == nil {
		return fmt.Errorf("graph %q: node %q is nil", g.name, id)
	}
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("graph %q: %w: %q", g.name, api.ErrDuplicateNode, id)
	}

	var cfg api.NodeConfig
	for _, o := range opts {
		o(&cfg)
	}
	g.nodes[id] = &nodeEntry{node: node, cfg: cfg}
	if g.start == "" {
		g.start = id
	}
	return nil
}

// SetStart marks the node the run loop begins at.
func (g *Graph) SetStart(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("graph %q: %w: %q", g.name, api.ErrUnknownNode, id)
	}
	g.start = id
	return nil
}

// On adds one edge to the transition table. An empty action is stored as
// DefaultAction. The target must be a registered node or Terminal.
// Re-adding an existing (from, action) pair replaces the prior target,
// unless the graph was built with WithStrictTransitions.
func (g *Graph) On(from string, action api.Action, to string) error {
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("graph %q: transition source: %w: %q", g.name, api.ErrUnknownNode, from)
	}
	if action == "" {
		action = api.DefaultAction
	}
	if to != api.Terminal {
		if _, ok := g.nodes[to]; !ok {
			return fmt.Errorf("graph %q: transition target: %w: %q", g.name, api.ErrUnknownNode, to)
		}
	}

	edges := g.transitions[from]
	if edges == nil {
		edges = make(map[api.Action]string)
		g.transitions[from] = edges
	}
	if _, exists := edges[action]; exists && g.cfg.StrictTransitions {
		return fmt.Errorf("graph %q: %w: (%q, %q)", g.name, api.ErrDuplicateTransition, from, action)
	}
	edges[action] = to
	return nil
}

// Run executes the graph to completion and returns the same, now mutated,
// shared store.
func (g *Graph) Run(ctx context.Context, shared api.Shared, params api.Params) (api.Shared, error) {
	if shared == nil {
		shared = api.NewShared(nil)
	}
	_, err := g.runWithAction(ctx, shared, params)
	return shared, err
}

// runWithAction runs the graph and additionally reports the final action
// produced before the run halted. Subflow adapters use it to raise a
// nested run's outcome into the parent's transition lookup.
func (g *Graph) runWithAction(ctx context.Context, shared api.Shared, params api.Params) (api.Action, error) {
	run := api.RunInfo{ID: uuid.NewString(), Graph: g.name}
	obs := g.cfg.Observer

	obs.OnRunStart(ctx, run)
	action, err := g.orchestrate(ctx, run, shared, params)
	if err != nil {
		obs.OnRunFailed(ctx, run, err)
		return action, err
	}
	obs.OnRunCompleted(ctx, run)
	return action, nil
}

// orchestrate is the execution loop: walk nodes from the start node until
// a terminal signal, a missing transition, an error, or the step cap.
func (g *Graph) orchestrate(ctx context.Context, run api.RunInfo, shared api.Shared, params api.Params) (api.Action, error) {
	if g.start == "" {
		return "", fmt.Errorf("graph %q: %w", g.name, api.ErrNoStartNode)
	}

	current := g.start
	last := api.DefaultAction

	for step := 0; ; step++ {
		if err := ctx.Err(); err != nil {
			return last, fmt.Errorf("graph %q: run cancelled at node %q: %w", g.name, current, err)
		}
		if g.cfg.MaxSteps > 0 && step >= g.cfg.MaxSteps {
			return last, fmt.Errorf("graph %q: %w (%d)", g.name, api.ErrMaxStepsExceeded, g.cfg.MaxSteps)
		}

		entry := g.nodes[current]

		obs := g.cfg.Observer
		obs.OnNodeStart(ctx, run, current, step)
		started := time.Now()

		action, attempts, err := g.invoke(ctx, current, entry, shared, params)

		obs.OnNodeCompleted(ctx, run, current, step, action, attempts, err, time.Since(started))
		if err != nil {
			return last, err
		}

		if action == "" {
			action = api.DefaultAction
		}
		last = action
		if action == api.End {
			return last, nil
		}

		target, ok := g.transitions[current][action]
		if !ok {
			return last, &api.RunError{
				Graph:   g.name,
				Node:    current,
				Phase:   api.PhaseTransition,
				Element: -1,
				Err:     fmt.Errorf("%w: action %q", api.ErrUnresolvedTransition, action),
			}
		}
		if target == api.Terminal {
			return last, nil
		}
		current = target
	}
}
