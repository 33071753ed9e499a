package api

import "context"

// Flow is anything that can execute to completion against a shared store:
// a Graph, a BatchFlow, or a custom runner.
type Flow interface {
	// Name returns the flow's name, used in errors and observer events.
	Name() string

	// Run executes the flow to completion and returns the same, now
	// mutated, shared store. A nil shared is replaced with an empty one.
	Run(ctx context.Context, shared Shared, params Params) (Shared, error)
}

// Graph is a container of registered nodes plus a transition table plus
// the execution loop that walks them.
type Graph interface {
	Flow

	// Register adds a node under a unique identifier. Registering a second
	// node under the same identifier fails with ErrDuplicateNode. The first
	// registered node becomes the start node unless SetStart says otherwise.
	Register(id string, node Node, opts ...NodeOption) error

	// SetStart marks the node the run loop begins at. The identifier must
	// already be registered.
	SetStart(id string) error

	// On adds one edge: when node `from` produces `action`, control moves
	// to node `to`. The target Terminal halts the run. Re-adding an
	// existing (from, action) pair replaces the prior target (last write
	// wins) unless the graph was built with WithStrictTransitions.
	On(from string, action Action, to string) error
}

// GraphConfig carries construction-time settings for a graph.
type GraphConfig struct {
	// Observer receives run and node lifecycle events. Nil means no-op.
	Observer Observer

	// MaxSteps caps the number of node invocations in one run. Zero means
	// unbounded; a cyclic graph that never reaches the terminal sentinel
	// will then loop forever, so long-running deployments should set this.
	MaxSteps int

	// StrictTransitions makes On reject re-registration of an existing
	// (source, action) edge instead of overwriting it.
	StrictTransitions bool
}

// GraphOption customizes graph construction.
type GraphOption func(*GraphConfig)

// WithObserver attaches an observer to the graph.
func WithObserver(o Observer) GraphOption {
	return func(c *GraphConfig) { c.Observer = o }
}

// WithMaxSteps caps the number of node invocations per run.
func WithMaxSteps(n int) GraphOption {
	return func(c *GraphConfig) { c.MaxSteps = n }
}

// WithStrictTransitions rejects duplicate (source, action) edges at
// construction time, for callers where a silent overwrite could mask bugs.
func WithStrictTransitions() GraphOption {
	return func(c *GraphConfig) { c.StrictTransitions = true }
}
