package grafo

import "fmt"

// GraphBuilder provides a fluent API for assembling graphs:
//
//	g, err := grafo.New("article").
//	    Node("outline", outline).
//	    Node("draft", draft, grafo.WithRetry(grafo.Retry(3).Policy())).
//	    Node("review", review).
//	    On("outline", "", "draft").
//	    On("draft", "", "review").
//	    On("review", "approve", grafo.Terminal).
//	    On("review", "revise", "draft").
//	    Build()
//
// The builder records the first construction error and reports it from
// Build, so chains stay free of per-call error handling.
type GraphBuilder struct {
	graph Graph
	err   error
}

// New creates a graph builder with the given name and options.
func New(name string, opts ...GraphOption) *GraphBuilder {
	return &GraphBuilder{graph: NewGraph(name, opts...)}
}

// Node registers a node. The first registered node becomes the start node
// unless Start says otherwise.
func (b *GraphBuilder) Node(id string, node Node, opts ...NodeOption) *GraphBuilder {
	if b.err == nil {
		b.err = b.graph.Register(id, node, opts...)
	}
	return b
}

// Start marks the node the run begins at.
func (b *GraphBuilder) Start(id string) *GraphBuilder {
	if b.err == nil {
		b.err = b.graph.SetStart(id)
	}
	return b
}

// On adds a transition. An empty action stands for DefaultAction; the
// target Terminal halts the run.
func (b *GraphBuilder) On(from string, action Action, to string) *GraphBuilder {
	if b.err == nil {
		b.err = b.graph.On(from, action, to)
	}
	return b
}

// Build returns the assembled graph, or the first error the chain hit.
func (b *GraphBuilder) Build() (Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.graph, nil
}

// MustBuild is Build for program-fixed graphs where a construction error
// is a bug.
func (b *GraphBuilder) MustBuild() Graph {
	g, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("grafo: %v", err))
	}
	return g
}
