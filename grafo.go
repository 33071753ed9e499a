package grafo

import (
	"database/sql"
	"fmt"

	"github.com/tverho/grafo/internal/engine"
	"github.com/tverho/grafo/pkg/api"
	"github.com/tverho/grafo/pkg/history"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Action               = api.Action
	Shared               = api.Shared
	Params               = api.Params
	Node                 = api.Node
	FuncNode             = api.FuncNode
	BatchNode            = api.BatchNode
	Flow                 = api.Flow
	Graph                = api.Graph
	RetryPolicy          = api.RetryPolicy
	NodeOption           = api.NodeOption
	GraphOption          = api.GraphOption
	FallbackFunc         = api.FallbackFunc
	Phase                = api.Phase
	RunError             = api.RunError
	ElementError         = api.ElementError
	RunInfo              = api.RunInfo
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export the action sentinels and lifecycle phases.

const (
	DefaultAction = api.DefaultAction
	End           = api.End
	Terminal      = api.Terminal

	PhasePrep       = api.PhasePrep
	PhaseExec       = api.PhaseExec
	PhaseFallback   = api.PhaseFallback
	PhasePost       = api.PhasePost
	PhaseTransition = api.PhaseTransition
)

// Re-export the error sentinels.

var (
	ErrDuplicateNode        = api.ErrDuplicateNode
	ErrDuplicateTransition  = api.ErrDuplicateTransition
	ErrUnknownNode          = api.ErrUnknownNode
	ErrNoStartNode          = api.ErrNoStartNode
	ErrUnresolvedTransition = api.ErrUnresolvedTransition
	ErrMaxStepsExceeded     = api.ErrMaxStepsExceeded
)

// Re-export common constructors and options.

var (
	NewShared       = api.NewShared
	NewSyncedShared = api.NewSyncedShared
	NewNode         = api.NewFuncNode
	NewBatchNode    = api.NewBatchNode

	WithRetry    = api.WithRetry
	WithFallback = api.WithFallback

	WithObserver          = api.WithObserver
	WithMaxSteps          = api.WithMaxSteps
	WithStrictTransitions = api.WithStrictTransitions

	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export the batch flow surface.

type (
	BatchFlowPrep   = engine.BatchFlowPrep
	BatchFlowOption = engine.BatchFlowOption
)

var (
	WithBatchObserver    = engine.WithBatchObserver
	WithBatchParallelism = engine.WithBatchParallelism
)

// Graph constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewGraph returns an empty graph. Register nodes and transitions on it,
// or use New for the fluent builder.
func NewGraph(name string, opts ...GraphOption) Graph {
	return engine.NewGraph(name, opts...)
}

// NewBatchFlow wraps a graph built by this package in a batch flow that
// re-runs it once per element produced by prep.
func NewBatchFlow(name string, sub Graph, prep BatchFlowPrep, opts ...BatchFlowOption) (Flow, error) {
	eg, ok := sub.(*engine.Graph)
	if !ok {
		return nil, errForeignGraph("NewBatchFlow", sub)
	}
	return engine.NewBatchFlow(name, eg, prep, opts...), nil
}

// Subflow adapts a flow into a node so one graph can run inside another.
// For graphs built by this package the nested run's final action becomes
// the node's action; any other Flow reports DefaultAction.
func Subflow(f Flow) Node {
	if eg, ok := f.(*engine.Graph); ok {
		return engine.NewSubflow(eg)
	}
	return engine.NewFlowNode(f)
}

func errForeignGraph(fn string, f Flow) error {
	return fmt.Errorf("grafo: %s requires a graph built by this package, got %T", fn, f)
}

// Run history

// History couples a run-history store with the observer that feeds it.
type History struct {
	Store    *history.Store
	Observer Observer
}

// HistoryRun is one recorded graph execution.
type HistoryRun = history.Run

// HistoryNodeRun is one recorded node invocation.
type HistoryNodeRun = history.NodeRun

// NewSQLiteHistory initializes the history schema in db and returns a
// History whose Observer can be attached to graphs via WithObserver.
// db must use a SQLite driver such as "modernc.org/sqlite".
func NewSQLiteHistory(db *sql.DB) (*History, error) {
	store, err := history.NewStore(db)
	if err != nil {
		return nil, err
	}
	return &History{
		Store:    store,
		Observer: history.NewObserver(store, nil),
	}, nil
}
