// Package history records completed graph runs to SQLite for later
// inspection. It hooks into the engine through the observer interface, so
// recording needs no support from nodes: attach the store's Observer to a
// graph and every run and node invocation leaves a row behind.
//
// History is an audit trail, not a checkpoint: the engine never reads it
// back to resume a run.
package history

import (
	"database/sql"
	"errors"
	"time"
)

// RunStatus is the terminal state of a recorded run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Run is one recorded graph execution.
type Run struct {
	ID         string
	Graph      string
	Status     RunStatus
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NodeRun is one recorded node invocation within a run, ordered by Seq.
type NodeRun struct {
	RunID    string
	Seq      int
	Node     string
	Action   string
	Error    string
	Duration time.Duration
}

// ErrRunNotFound is returned when a run id has no recorded row.
var ErrRunNotFound = errors.New("history: run not found")

// Store persists run history in SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type Store struct {
	db *sql.DB
}

// NewStore initializes the required schema in the given database and
// returns a new Store.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			graph TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS node_runs (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			node TEXT NOT NULL,
			action TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			duration_ns INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
	)
	return err
}

func (s *Store) startRun(id, graph string, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, graph, status, started_at)
		VALUES (?, ?, ?, ?)`,
		id, graph, string(StatusRunning), at.UnixNano(),
	)
	return err
}

func (s *Store) finishRun(id string, status RunStatus, errStr string, at time.Time) error {
	res, err := s.db.Exec(`
		UPDATE runs
		SET status = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		string(status), errStr, at.UnixNano(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *Store) appendNodeRun(nr NodeRun) error {
	_, err := s.db.Exec(`
		INSERT INTO node_runs (run_id, seq, node, action, error, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nr.RunID, nr.Seq, nr.Node, nr.Action, nr.Error, nr.Duration.Nanoseconds(),
	)
	return err
}

// GetRun returns one recorded run by id.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, graph, status, error, started_at, finished_at
		FROM runs
		WHERE id = ?`,
		id,
	)
	return scanRun(row)
}

// ListRuns returns all recorded runs for a graph, most recent first.
// An empty graph name returns runs for every graph.
func (s *Store) ListRuns(graph string) ([]*Run, error) {
	query := `
		SELECT id, graph, status, error, started_at, finished_at
		FROM runs`
	args := []any{}
	if graph != "" {
		query += ` WHERE graph = ?`
		args = append(args, graph)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// NodeRuns returns the node invocations of one run in execution order.
func (s *Store) NodeRuns(runID string) ([]NodeRun, error) {
	rows, err := s.db.Query(`
		SELECT run_id, seq, node, action, error, duration_ns
		FROM node_runs
		WHERE run_id = ?
		ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NodeRun
	for rows.Next() {
		var (
			nr  NodeRun
			dur int64
		)
		if err := rows.Scan(&nr.RunID, &nr.Seq, &nr.Node, &nr.Action, &nr.Error, &dur); err != nil {
			return nil, err
		}
		nr.Duration = time.Duration(dur)
		out = append(out, nr)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r        Run
		started  int64
		finished int64
		status   string
	)
	err := row.Scan(&r.ID, &r.Graph, &status, &r.Error, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	r.StartedAt = time.Unix(0, started)
	if finished != 0 {
		r.FinishedAt = time.Unix(0, finished)
	}
	return &r, nil
}
