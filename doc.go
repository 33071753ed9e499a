// Package grafo provides a lightweight, embeddable graph-workflow engine
// for Go.
//
// Grafo models a workflow as a directed graph of nodes. Each node runs a
// three-phase lifecycle and reports a symbolic action; the graph's
// transition table maps that action to the next node. The engine runs
// fully in Go, has no infrastructure requirements, and integrates cleanly
// into existing codebases.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Node
//  2. Graph
//  3. Shared and Params
//  4. BatchNode and BatchFlow
//  5. Subflow
//
// # Node
//
// A Node is the fundamental executable unit. Its lifecycle has three
// phases:
//
//   - Prep reads what it needs from the shared store.
//   - Exec does the actual work. It sees only the prep result, which
//     keeps it retryable: the engine may call it several times under a
//     RetryPolicy, and a fallback can substitute a result once attempts
//     are exhausted.
//   - Post writes results back to the shared store and returns the
//     action that drives the next transition.
//
// Most nodes are assembled from plain functions with NewNode:
//
//	summarize := grafo.NewNode().
//	    SetPrep(readText).
//	    SetExec(callSummarizer).
//	    SetPost(writeSummary).
//	    SetRetry(grafo.Retry(3).WithExponentialBackoff(100*time.Millisecond, 2, time.Second).Policy())
//
// # Graph
//
// A Graph holds registered nodes and the transition table. Runs are
// deterministic: from the start node, each step executes one node and
// follows the single transition registered for the returned action. A
// node returning End, or a transition targeting Terminal, halts the run.
// An action with no registered transition fails the run; there is no
// silent stop.
//
// Graphs are assembled with the fluent builder:
//
//	g := grafo.New("article").
//	    Node("draft", draft).
//	    Node("review", review).
//	    On("draft", "", "review").
//	    On("review", "approve", grafo.Terminal).
//	    On("review", "revise", "draft").
//	    MustBuild()
//
//	shared, err := g.Run(ctx, nil, nil)
//
// # Shared and Params
//
// All inter-node communication flows through the run-scoped Shared store;
// nodes never talk to each other directly. Params is the per-node (and
// per-batch-element) read-only configuration bundle, mergeable and
// decodable into structs.
//
// # BatchNode and BatchFlow
//
// BatchNode fans one node's execute phase out over a collection, with
// per-element retry and fallback and optional bounded parallelism.
// BatchFlow re-runs an entire sub-graph once per element of a derived
// parameter list, against the same shared store.
//
// # Subflow
//
// Subflow adapts a graph into a node, so flows compose by nesting. The
// nested run shares the parent's store, and its final action drives the
// parent's next transition.
//
// # Observability
//
// Observers receive run and node lifecycle events. NewLoggingObserver
// logs them through log/slog, BasicMetrics keeps atomic counters, and
// NewSQLiteHistory records finished runs to SQLite for later inspection.
//
// For examples, see the /examples directory or the project README.
package grafo
