package api

import (
	"context"
	"time"
)

// Node is the atomic unit of work. The engine drives one invocation
// through three ordered phases:
//
//  1. Prep reads from shared/params into a locally scoped value. It must
//     not mutate the shared store.
//  2. Exec performs the actual task on the prepared value. It has no
//     access to the shared store; side effects belong in Post.
//  3. Post writes results into the shared store and returns the Action
//     used for transition lookup. An empty Action is treated as
//     DefaultAction.
//
// Only Exec is subject to retry; a Prep or Post failure terminates the
// run immediately.
type Node interface {
	Prep(ctx context.Context, shared Shared, params Params) (any, error)
	Exec(ctx context.Context, prepResult any) (any, error)
	Post(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error)
}

// Retryable is implemented by nodes that carry their own retry policy.
// A nil policy means a single attempt.
type Retryable interface {
	Retry() *RetryPolicy
}

// FallbackFunc produces a substitute exec result after all attempts are
// exhausted. It receives the prep result and the last exec error.
type FallbackFunc func(ctx context.Context, prepResult any, execErr error) (any, error)

// Fallbacker is implemented by nodes that can recover from an exhausted
// Exec. When the fallback succeeds, the run proceeds to Post with the
// fallback result as if Exec had succeeded.
type Fallbacker interface {
	ExecFallback(ctx context.Context, prepResult any, execErr error) (any, error)
}

// RetryPolicy controls how Exec is retried when it returns an error.
// MaxAttempts includes the first attempt:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
//
// InitialBackoff is the delay before the first retry; each subsequent
// delay is multiplied by BackoffMultiplier (default 2.0) and capped at
// MaxBackoff when set. A zero InitialBackoff retries immediately.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// Attempts returns the normalized attempt count: at least 1, even for a
// nil or zero policy.
func (p *RetryPolicy) Attempts() int {
	if p == nil || p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns the backoff delay to apply after the given failed attempt
// (1-based). It returns 0 when no backoff is configured.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if p == nil || p.InitialBackoff <= 0 || attempt < 1 {
		return 0
	}
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 2.0
	}
	d := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * mult)
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Sleep blocks for the backoff delay of the given failed attempt, or until
// the context is done, in which case it returns ctx.Err.
func (p *RetryPolicy) Sleep(ctx context.Context, attempt int) error {
	d := p.Delay(attempt)
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// NodeConfig carries per-registration execution settings for a node.
// Settings here take precedence over what the node itself declares via
// Retryable / Fallbacker.
type NodeConfig struct {
	Retry    *RetryPolicy
	Fallback FallbackFunc
}

// NodeOption customizes one node registration.
type NodeOption func(*NodeConfig)

// WithRetry attaches a retry policy to the registration, overriding any
// policy the node declares itself.
func WithRetry(policy RetryPolicy) NodeOption {
	return func(c *NodeConfig) {
		p := policy
		c.Retry = &p
	}
}

// WithFallback attaches a fallback to the registration, overriding any
// fallback the node declares itself.
func WithFallback(fn FallbackFunc) NodeOption {
	return func(c *NodeConfig) { c.Fallback = fn }
}
