package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run kinds.
const (
	KindLineFit    = "linefit"
	KindEvaluation = "evaluation"
	KindSummary    = "summary"
)

const defaultListLimit = 100

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("analysis run not found")

// AnalysisRun is one persisted analysis: what was computed, over which
// trajectories, with which parameters, and the JSON-encoded result.
type AnalysisRun struct {
	RunID      string          `json:"run_id"`
	Kind       string          `json:"kind"`
	Source     string          `json:"source"`
	ParamsJSON json.RawMessage `json:"params_json,omitempty"`
	ResultJSON json.RawMessage `json:"result_json,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

// ValidKind reports whether kind is one of the known run kinds.
func ValidKind(kind string) bool {
	switch kind {
	case KindLineFit, KindEvaluation, KindSummary:
		return true
	}
	return false
}

// RunStore provides persistence for analysis runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Insert persists a run. An empty RunID gets a UUID and a zero CreatedAt
// gets the current time.
func (s *RunStore) Insert(run *AnalysisRun) error {
	if !ValidKind(run.Kind) {
		return fmt.Errorf("unknown run kind %q", run.Kind)
	}
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO analysis_runs (run_id, kind, source, params_json, result_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Kind, run.Source,
			nullableJSON(run.ParamsJSON), nullableJSON(run.ResultJSON), run.CreatedAt,
		)
		return err
	})
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// Get returns a single run by ID.
func (s *RunStore) Get(runID string) (*AnalysisRun, error) {
	row := s.db.QueryRow(`
		SELECT run_id, kind, source, params_json, result_json, created_at
		FROM analysis_runs
		WHERE run_id = ?`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan analysis run: %w", err)
	}
	return run, nil
}

// List returns runs newest first. An empty kind matches every kind; a
// non-positive limit uses the default of 100.
func (s *RunStore) List(kind string, limit int) ([]*AnalysisRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.Query(`
		SELECT run_id, kind, source, params_json, result_json, created_at
		FROM analysis_runs
		WHERE ? = '' OR kind = ?
		ORDER BY created_at DESC, run_id
		LIMIT ?`, kind, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("query analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []*AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis run row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Delete removes a run by ID.
func (s *RunStore) Delete(runID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM analysis_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete analysis run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

// CountByKind returns the number of stored runs per kind.
func (s *RunStore) CountByKind() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM analysis_runs GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count analysis runs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan run count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*AnalysisRun, error) {
	var run AnalysisRun
	var params, result sql.NullString
	if err := row.Scan(&run.RunID, &run.Kind, &run.Source, &params, &result, &run.CreatedAt); err != nil {
		return nil, err
	}
	if params.Valid {
		run.ParamsJSON = json.RawMessage(params.String)
	}
	if result.Valid {
		run.ResultJSON = json.RawMessage(result.String)
	}
	return &run, nil
}
