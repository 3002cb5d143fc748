package store

import (
	"context"
	"fmt"
	"time"
)

// Run is one interpreter run.
type Run struct {
	ID            string
	Workflow      string
	DocumentHash  string
	Status        string
	ErrorCode     string
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time
	EngineVersion string
	IRVersion     string
}

// StepResult is one executed step of a run.
type StepResult struct {
	RunID      string
	Seq        int64
	Step       string
	Kind       string
	Result     any
	ResultHash string
	Duration   time.Duration
}

// WriteRun inserts a run record. Duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, workflow, document_hash, status, error_code, error, started_at, finished_at, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Workflow,
		run.DocumentHash,
		run.Status,
		run.ErrorCode,
		run.Error,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// FinishRun sets a run's final status. Finishing an unknown run is
// ErrNotFound.
func (s *Store) FinishRun(ctx context.Context, id, status, errorCode, errorMessage string, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, error_code = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, status, errorCode, errorMessage, formatTime(finishedAt), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

// WriteStepResult inserts a step result. The result is stored as canonical
// JSON and its hash is computed here. Writing the same (run, step) twice keeps
// the first result.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteStepResult(ctx context.Context, r StepResult) error {
	resultJSON, hash, err := marshalResult(r.Result)
	if err != nil {
		return fmt.Errorf("write step result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO step_results
		(run_id, seq, step, kind, result, result_hash, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO NOTHING
	`,
		r.RunID,
		r.Seq,
		r.Step,
		r.Kind,
		resultJSON,
		hash,
		r.Duration.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("write step result: %w", err)
	}
	return nil
}
