package api

import (
	"errors"
	"fmt"
)

// Phase identifies where in a node invocation a failure happened.
type Phase string

const (
	PhasePrep       Phase = "prep"
	PhaseExec       Phase = "exec"
	PhaseFallback   Phase = "fallback"
	PhasePost       Phase = "post"
	PhaseTransition Phase = "transition"
)

// Errors surfaced at graph-construction time. These indicate a static
// misconfiguration and are never retried.
var (
	// ErrDuplicateNode is returned when registering a second node under an
	// identifier that is already taken.
	ErrDuplicateNode = errors.New("node identifier already registered")

	// ErrDuplicateTransition is returned in strict mode when re-registering
	// an existing (source, action) edge. The default mode replaces the prior
	// target instead (last write wins).
	ErrDuplicateTransition = errors.New("transition already registered")

	// ErrUnknownNode is returned when an identifier does not name a
	// registered node.
	ErrUnknownNode = errors.New("unknown node identifier")

	// ErrNoStartNode is returned by Run when no start node has been set.
	ErrNoStartNode = errors.New("no start node defined")
)

// Errors surfaced at run time.
var (
	// ErrUnresolvedTransition means a node produced an action with no
	// matching entry in the transition table. This is treated as a
	// graph-definition defect, not a transient condition: the run fails
	// hard rather than silently stopping.
	ErrUnresolvedTransition = errors.New("no transition for action")

	// ErrMaxStepsExceeded means the run hit the configured step cap,
	// usually because a cyclic graph never reached the terminal sentinel.
	ErrMaxStepsExceeded = errors.New("maximum step count exceeded")
)

// RunError is the single error value a failed run surfaces. It identifies
// the graph, the node, the phase, and (for batch work) the element index
// that failed, plus the underlying cause.
type RunError struct {
	Graph   string
	Node    string
	Phase   Phase
	Element int // batch element index; -1 when not applicable
	Err     error
}

func (e *RunError) Error() string {
	if e.Element >= 0 {
		return fmt.Sprintf("graph %q: node %q: %s phase: element %d: %v", e.Graph, e.Node, e.Phase, e.Element, e.Err)
	}
	return fmt.Sprintf("graph %q: node %q: %s phase: %v", e.Graph, e.Node, e.Phase, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// ElementError carries the index and value of a batch element whose
// execution failed. It is produced inside batch nodes and picked up by
// the engine to fill RunError.Element.
type ElementError struct {
	Index int
	Item  any
	Err   error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element %d (%v): %v", e.Index, e.Item, e.Err)
}

func (e *ElementError) Unwrap() error { return e.Err }

func asElementError(err error, target **ElementError) bool {
	return errors.As(err, target)
}
