package engine

import (
	"context"
	"fmt"

	"github.com/tverho/grafo/pkg/api"
)

// Subflow adapts a graph into a node so it can be registered inside
// another graph. The nested run sees the parent's shared store; whatever
// it writes there is visible to the nodes that follow. The nested run's
// final action becomes the subflow node's own action, so the parent's
// transition table can branch on the nested outcome. Note that a nested
// run halting via the End action ends the parent too; a nested graph that
// should hand control back must halt through a Terminal transition target
// instead, leaving a routable action for the parent.
type Subflow struct {
	graph *Graph
}

var _ api.Node = (*Subflow)(nil)

// NewSubflow wraps g as a node.
func NewSubflow(g *Graph) *Subflow {
	return &Subflow{graph: g}
}

// subflowCarrier threads the shared store and params from Prep to Exec,
// where the nested run actually happens.
type subflowCarrier struct {
	shared api.Shared
	params api.Params
}

// Prep captures the parent's shared store and the node's params for Exec.
func (s *Subflow) Prep(ctx context.Context, shared api.Shared, params api.Params) (any, error) {
	return &subflowCarrier{shared: shared, params: params}, nil
}

// Exec runs the nested graph to completion and yields its final action.
func (s *Subflow) Exec(ctx context.Context, prepResult any) (any, error) {
	c, ok := prepResult.(*subflowCarrier)
	if !ok {
		return nil, fmt.Errorf("subflow %q: unexpected prep result %T", s.graph.Name(), prepResult)
	}
	action, err := s.graph.runWithAction(ctx, c.shared, c.params)
	if err != nil {
		return nil, err
	}
	return action, nil
}

// Post surfaces the nested run's final action as this node's action.
func (s *Subflow) Post(ctx context.Context, shared api.Shared, params api.Params, prepResult, execResult any) (api.Action, error) {
	action, ok := execResult.(api.Action)
	if !ok {
		return "", fmt.Errorf("subflow %q: unexpected exec result %T", s.graph.Name(), execResult)
	}
	return action, nil
}

// FlowNode adapts any Flow (a batch flow, or a graph from another source)
// into a node. Unlike Subflow it cannot see the nested run's final action,
// so it always reports DefaultAction.
type FlowNode struct {
	flow api.Flow
}

var _ api.Node = (*FlowNode)(nil)

// NewFlowNode wraps f as a node.
func NewFlowNode(f api.Flow) *FlowNode {
	return &FlowNode{flow: f}
}

func (n *FlowNode) Prep(ctx context.Context, shared api.Shared, params api.Params) (any, error) {
	return &subflowCarrier{shared: shared, params: params}, nil
}

func (n *FlowNode) Exec(ctx context.Context, prepResult any) (any, error) {
	c, ok := prepResult.(*subflowCarrier)
	if !ok {
		return nil, fmt.Errorf("flow node %q: unexpected prep result %T", n.flow.Name(), prepResult)
	}
	_, err := n.flow.Run(ctx, c.shared, c.params)
	return nil, err
}

func (n *FlowNode) Post(ctx context.Context, shared api.Shared, params api.Params, prepResult, execResult any) (api.Action, error) {
	return api.DefaultAction, nil
}
