package engine

import (
	"context"
	"errors"

	"github.com/tverho/grafo/pkg/api"
)

// invoke drives one node through its full lifecycle: prep, exec with
// retry, fallback on exhaustion, post. It returns the resulting action
// and the number of Exec calls made. Errors come back as *api.RunError
// with the node, phase and (for batch nodes) element index filled in.
func (g *Graph) invoke(ctx context.Context, id string, entry *nodeEntry, shared api.Shared, params api.Params) (api.Action, int, error) {
	node := entry.node

	prepResult, err := node.Prep(ctx, shared, params)
	if err != nil {
		// Prep failures are never retried.
		return "", 0, g.runError(id, api.PhasePrep, err)
	}

	policy := entry.cfg.Retry
	if policy == nil {
		if r, ok := node.(api.Retryable); ok {
			policy = r.Retry()
		}
	}
	attempts := policy.Attempts()

	var (
		execResult any
		lastErr    error
		made       int
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", made, g.runError(id, api.PhaseExec, err)
		}
		made = attempt
		execResult, lastErr = node.Exec(ctx, prepResult)
		if lastErr == nil {
			break
		}
		if attempt < attempts {
			if err := policy.Sleep(ctx, attempt); err != nil {
				return "", made, g.runError(id, api.PhaseExec, err)
			}
		}
	}

	if lastErr != nil {
		// Batch nodes run their own per-element retry/fallback; their
		// failure arrives here already exhausted and is surfaced as-is.
		if elem := elementOf(lastErr); elem != nil {
			return "", made, g.elementError(id, elem)
		}

		fallback := entry.cfg.Fallback
		if fallback == nil {
			if f, ok := node.(api.Fallbacker); ok {
				fallback = f.ExecFallback
			}
		}
		if fallback == nil {
			return "", made, g.runError(id, api.PhaseFallback, lastErr)
		}
		execResult, err = fallback(ctx, prepResult, lastErr)
		if err != nil {
			return "", made, g.runError(id, api.PhaseFallback, err)
		}
	}

	action, err := node.Post(ctx, shared, params, prepResult, execResult)
	if err != nil {
		return "", made, g.runError(id, api.PhasePost, err)
	}
	return action, made, nil
}

func (g *Graph) runError(node string, phase api.Phase, err error) error {
	return &api.RunError{
		Graph:   g.name,
		Node:    node,
		Phase:   phase,
		Element: -1,
		Err:     err,
	}
}

func (g *Graph) elementError(node string, elem *api.ElementError) error {
	return &api.RunError{
		Graph:   g.name,
		Node:    node,
		Phase:   api.PhaseExec,
		Element: elem.Index,
		Err:     elem.Err,
	}
}

func elementOf(err error) *api.ElementError {
	var elem *api.ElementError
	if errors.As(err, &elem) {
		return elem
	}
	return nil
}
