package api

import "context"

// PrepFunc is the prepare phase of a function-based node.
type PrepFunc func(ctx context.Context, shared Shared, params Params) (any, error)

// ExecFunc is the execute phase of a function-based node.
type ExecFunc func(ctx context.Context, prepResult any) (any, error)

// PostFunc is the finalize phase of a function-based node.
type PostFunc func(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error)

// FuncNode is a Node assembled from plain functions. Unset phases get
// sensible defaults: Prep yields nil, Exec passes the prep result through,
// Post returns DefaultAction.
//
//	summarize := api.NewFuncNode().
//	    SetPrep(readText).
//	    SetExec(callSummarizer).
//	    SetPost(writeSummary).
//	    SetRetry(api.RetryPolicy{MaxAttempts: 3})
type FuncNode struct {
	prep     PrepFunc
	exec     ExecFunc
	post     PostFunc
	fallback FallbackFunc
	retry    *RetryPolicy
}

var (
	_ Node       = (*FuncNode)(nil)
	_ Retryable  = (*FuncNode)(nil)
	_ Fallbacker = (*FuncNode)(nil)
)

// NewFuncNode returns an empty FuncNode ready for chained configuration.
func NewFuncNode() *FuncNode {
	return &FuncNode{}
}

// SetPrep sets the prepare phase.
func (n *FuncNode) SetPrep(f PrepFunc) *FuncNode {
	n.prep = f
	return n
}

// SetExec sets the execute phase.
func (n *FuncNode) SetExec(f ExecFunc) *FuncNode {
	n.exec = f
	return n
}

// SetPost sets the finalize phase.
func (n *FuncNode) SetPost(f PostFunc) *FuncNode {
	n.post = f
	return n
}

// SetFallback sets the fallback invoked after Exec exhausts its attempts.
func (n *FuncNode) SetFallback(f FallbackFunc) *FuncNode {
	n.fallback = f
	return n
}

// SetRetry sets the retry policy applied to Exec.
func (n *FuncNode) SetRetry(policy RetryPolicy) *FuncNode {
	p := policy
	n.retry = &p
	return n
}

func (n *FuncNode) Prep(ctx context.Context, shared Shared, params Params) (any, error) {
	if n.prep == nil {
		return nil, nil
	}
	return n.prep(ctx, shared, params)
}

func (n *FuncNode) Exec(ctx context.Context, prepResult any) (any, error) {
	if n.exec == nil {
		return prepResult, nil
	}
	return n.exec(ctx, prepResult)
}

func (n *FuncNode) Post(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error) {
	if n.post == nil {
		return DefaultAction, nil
	}
	return n.post(ctx, shared, params, prepResult, execResult)
}

func (n *FuncNode) Retry() *RetryPolicy {
	return n.retry
}

func (n *FuncNode) ExecFallback(ctx context.Context, prepResult any, execErr error) (any, error) {
	if n.fallback == nil {
		return nil, execErr
	}
	return n.fallback(ctx, prepResult, execErr)
}

// HasFallback reports whether a fallback has been configured.
func (n *FuncNode) HasFallback() bool {
	return n.fallback != nil
}
