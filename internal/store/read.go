package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

const runColumns = `id, workflow, document_hash, status, error_code, error, started_at, finished_at, engine_version, ir_version`

// ReadRun returns a run by ID, or ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns returns the most recent runs first. An empty workflow lists runs
// of every workflow; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, workflow string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if workflow != "" {
		query += ` WHERE workflow = ?`
		args = append(args, workflow)
	}
	query += ` ORDER BY started_at DESC, id COLLATE BINARY DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadStepResults returns a run's step results in execution order.
func (s *Store) ReadStepResults(ctx context.Context, runID string) ([]StepResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, step, kind, result, result_hash, duration_us
		FROM step_results
		WHERE run_id = ?
		ORDER BY seq ASC, step COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query step results: %w", err)
	}
	defer rows.Close()

	results := []StepResult{}
	for rows.Next() {
		var r StepResult
		var resultJSON string
		var durationUS int64
		if err := rows.Scan(&r.RunID, &r.Seq, &r.Step, &r.Kind, &resultJSON, &r.ResultHash, &durationUS); err != nil {
			return nil, fmt.Errorf("scan step result: %w", err)
		}
		if r.Result, err = unmarshalResult(resultJSON); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationUS) * time.Microsecond
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate step results: %w", err)
	}
	return results, nil
}

// ReadOutputs rebuilds a run's {step → result} table from its stored step
// results.
func (s *Store) ReadOutputs(ctx context.Context, runID string) (map[string]any, error) {
	results, err := s.ReadStepResults(ctx, runID)
	if err != nil {
		return nil, err
	}
	outputs := make(map[string]any, len(results))
	for _, r := range results {
		outputs[r.Step] = r.Result
	}
	return outputs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var started, finished string
	err := row.Scan(
		&run.ID,
		&run.Workflow,
		&run.DocumentHash,
		&run.Status,
		&run.ErrorCode,
		&run.Error,
		&started,
		&finished,
		&run.EngineVersion,
		&run.IRVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, err
	}
	return run, nil
}
