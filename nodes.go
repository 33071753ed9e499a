package grafo

import (
	"context"
	"fmt"
)

// DecideFunc obtains a decision string from an external source, typically
// an LLM call or a lookup driven by the shared store.
type DecideFunc func(ctx context.Context, shared Shared, params Params) (string, error)

// DecisionNode builds a branching node around an external decision. Exec
// obtains the decision string; Post maps it onto the known actions and
// substitutes fallback when it matches none, so an unexpected decision
// never leaks an unroutable action into transition lookup.
func DecisionNode(decide DecideFunc, known []Action, fallback Action) Node {
	return &decisionNode{decide: decide, known: known, fallback: fallback}
}

type decisionNode struct {
	decide   DecideFunc
	known    []Action
	fallback Action
}

type decisionInput struct {
	shared Shared
	params Params
}

func (n *decisionNode) Prep(ctx context.Context, shared Shared, params Params) (any, error) {
	return &decisionInput{shared: shared, params: params}, nil
}

func (n *decisionNode) Exec(ctx context.Context, prepResult any) (any, error) {
	in := prepResult.(*decisionInput)
	return n.decide(ctx, in.shared, in.params)
}

func (n *decisionNode) Post(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error) {
	decision, _ := execResult.(string)
	for _, a := range n.known {
		if Action(decision) == a {
			return a, nil
		}
	}
	return n.fallback, nil
}

// PassThrough returns a node with no behavior beyond emitting the given
// action. Useful as a join point or a named terminal step.
func PassThrough(action Action) Node {
	return NewNode().
		SetPost(func(ctx context.Context, shared Shared, params Params, prepResult, execResult any) (Action, error) {
			return action, nil
		})
}

// ParamsFromShared builds a batch flow prep that reads the element list
// from a shared store key. The value must be a []Params or a []string;
// string elements become Params with the element under elemKey.
func ParamsFromShared(key, elemKey string) BatchFlowPrep {
	return func(ctx context.Context, shared Shared, params Params) ([]Params, error) {
		v, ok := shared.Get(key)
		if !ok {
			return nil, nil
		}
		switch elems := v.(type) {
		case []Params:
			return elems, nil
		case []string:
			out := make([]Params, len(elems))
			for i, e := range elems {
				out[i] = Params{elemKey: e}
			}
			return out, nil
		default:
			return nil, fmt.Errorf("grafo: shared key %q holds %T, want []Params or []string", key, v)
		}
	}
}
