package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicflow/internal/ir"
)

var t0 = time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

func TestWriteAndReadRun(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", "orders", t0)))

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "orders", run.Workflow)
	assert.Equal(t, StatusRunning, run.Status)
	assert.True(t, t0.Equal(run.StartedAt))
	assert.True(t, run.FinishedAt.IsZero())

	require.NoError(t, s.FinishRun(ctx, "run-1", StatusFailed, "TYPE_MISMATCH", "boom", t0.Add(time.Second)))

	run, err = s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "TYPE_MISMATCH", run.ErrorCode)
	assert.Equal(t, "boom", run.Error)
	assert.True(t, t0.Add(time.Second).Equal(run.FinishedAt))
}

func TestWriteRunIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", "first", t0)))
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", "second", t0)))

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "first", run.Workflow)
}

func TestReadRunNotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(t.Context(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.FinishRun(t.Context(), "nope", StatusSucceeded, "", "", t0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.WriteRun(ctx, createTestRun("a", "orders", t0)))
	require.NoError(t, s.WriteRun(ctx, createTestRun("b", "billing", t0.Add(time.Minute))))
	require.NoError(t, s.WriteRun(ctx, createTestRun("c", "orders", t0.Add(2*time.Minute))))

	all, err := s.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, runIDs(all), "newest first")

	orders, err := s.ListRuns(ctx, "orders", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, runIDs(orders))

	none, err := s.ListRuns(ctx, "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStepResults(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", "w", t0)))

	second := map[string]any{"name": "x", "type": "Integer", "value": int64(8)}
	require.NoError(t, s.WriteStepResult(ctx, StepResult{
		RunID: "run-1", Seq: 2, Step: "Inc", Kind: "IncrementVariable", Result: second, Duration: 3 * time.Millisecond,
	}))
	require.NoError(t, s.WriteStepResult(ctx, StepResult{
		RunID: "run-1", Seq: 1, Step: "Build", Kind: "Compose", Result: map[string]any{"ratio": 0.5, "n": 2},
	}))
	// Same (run, step) keeps the first result
	require.NoError(t, s.WriteStepResult(ctx, StepResult{
		RunID: "run-1", Seq: 3, Step: "Build", Kind: "Compose", Result: "other",
	}))

	results, err := s.ReadStepResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Build", results[0].Step)
	assert.Equal(t, map[string]any{"n": int64(2), "ratio": 0.5}, results[0].Result)
	assert.Equal(t, "Inc", results[1].Step)
	assert.Equal(t, 3*time.Millisecond, results[1].Duration)

	hash, err := ir.ResultHash(second)
	require.NoError(t, err)
	assert.Equal(t, hash, results[1].ResultHash)

	outputs, err := s.ReadOutputs(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, second, outputs["Inc"])
}

func runIDs(runs []Run) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}
