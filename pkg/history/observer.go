package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tverho/grafo/pkg/api"
)

// Observer writes engine events into a Store. Attach it to a graph with
// WithObserver; recording errors are logged and never fail the run.
type Observer struct {
	api.NoopObserver

	store  *Store
	logger *slog.Logger

	mu  sync.Mutex
	seq map[string]int
}

var _ api.Observer = (*Observer)(nil)

// NewObserver returns an Observer writing to store. A nil logger falls
// back to slog.Default.
func NewObserver(store *Store, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		store:  store,
		logger: logger,
		seq:    make(map[string]int),
	}
}

func (o *Observer) OnRunStart(ctx context.Context, run api.RunInfo) {
	if err := o.store.startRun(run.ID, run.Graph, time.Now()); err != nil {
		o.logger.Error("history: recording run start failed", "run_id", run.ID, "error", err)
	}
}

func (o *Observer) OnRunCompleted(ctx context.Context, run api.RunInfo) {
	o.closeRun(run, StatusCompleted, "")
}

func (o *Observer) OnRunFailed(ctx context.Context, run api.RunInfo, err error) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	o.closeRun(run, StatusFailed, errStr)
}

func (o *Observer) closeRun(run api.RunInfo, status RunStatus, errStr string) {
	o.mu.Lock()
	delete(o.seq, run.ID)
	o.mu.Unlock()

	if err := o.store.finishRun(run.ID, status, errStr, time.Now()); err != nil {
		o.logger.Error("history: recording run end failed", "run_id", run.ID, "error", err)
	}
}

func (o *Observer) OnNodeCompleted(ctx context.Context, run api.RunInfo, nodeID string, step int, action api.Action, attempts int, err error, d time.Duration) {
	o.mu.Lock()
	seq := o.seq[run.ID]
	o.seq[run.ID] = seq + 1
	o.mu.Unlock()

	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	nr := NodeRun{
		RunID:    run.ID,
		Seq:      seq,
		Node:     nodeID,
		Action:   string(action),
		Error:    errStr,
		Duration: d,
	}
	if err := o.store.appendNodeRun(nr); err != nil {
		o.logger.Error("history: recording node run failed", "run_id", run.ID, "node", nodeID, "error", err)
	}
}
