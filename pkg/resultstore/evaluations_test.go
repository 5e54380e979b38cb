package resultstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db))
	return db
}

func TestOpen_FilePath(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "results.db")

	db, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, Migrate(ctx, db))

	// Migrate is idempotent.
	require.NoError(t, Migrate(ctx, db))
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestRecordEvaluation(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	seed := int64(42)
	ev := Evaluation{
		InstanceKey: "taillard/tai4_4_0.txt",
		RunID:       "run-1",
		Objective:   193,
		Seed:        &seed,
		Jobs:        4,
		Machines:    4,
		Solution:    []byte(`{"key":"taillard/tai4_4_0.txt"}`),
	}
	require.NoError(t, RecordEvaluation(ctx, db, ev))

	got, err := BestEvaluation(ctx, db, "taillard/tai4_4_0.txt")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 193, got.Objective)
	assert.False(t, got.Penalized)
	require.NotNil(t, got.Seed)
	assert.Equal(t, int64(42), *got.Seed)
	assert.Equal(t, 4, got.Jobs)
	assert.Equal(t, 4, got.Machines)
	assert.JSONEq(t, `{"key":"taillard/tai4_4_0.txt"}`, string(got.Solution))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestBestEvaluation(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	evals := []Evaluation{
		{InstanceKey: "a.txt", RunID: "r1", Objective: 300},
		{InstanceKey: "a.txt", RunID: "r1", Objective: 250},
		{InstanceKey: "a.txt", RunID: "r2", Objective: 280},
		// Penalty rows never win.
		{InstanceKey: "a.txt", RunID: "r2", Objective: 100, Penalized: true},
		{InstanceKey: "b.txt", RunID: "r1", Objective: 10},
	}
	require.NoError(t, BatchRecordEvaluations(ctx, db, evals))

	best, err := BestEvaluation(ctx, db, "a.txt")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, 250, best.Objective)
	assert.Equal(t, "r1", best.RunID)

	best, err = BestEvaluation(ctx, db, "b.txt")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, 10, best.Objective)
}

func TestBestEvaluation_NoFeasibleRows(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	require.NoError(t, RecordEvaluation(ctx, db, Evaluation{
		InstanceKey: "a.txt", RunID: "r1", Objective: 1_000_000_000, Penalized: true,
	}))

	best, err := BestEvaluation(ctx, db, "a.txt")
	require.NoError(t, err)
	assert.Nil(t, best)

	best, err = BestEvaluation(ctx, db, "never-seen.txt")
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestListEvaluations(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	now := time.Now().UTC()
	evals := []Evaluation{
		{InstanceKey: "a.txt", RunID: "r1", Objective: 300, CreatedAt: now},
		{InstanceKey: "a.txt", RunID: "r2", Objective: 250, CreatedAt: now},
		{InstanceKey: "a.txt", RunID: "r1", Objective: 500, Penalized: true, CreatedAt: now},
		{InstanceKey: "b.txt", RunID: "r1", Objective: 100, CreatedAt: now},
	}
	require.NoError(t, BatchRecordEvaluations(ctx, db, evals))

	t.Run("by instance", func(t *testing.T) {
		got, err := ListEvaluations(ctx, db, ListQuery{InstanceKey: "a.txt"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 250, got[0].Objective)
		assert.Equal(t, 300, got[1].Objective)
	})

	t.Run("include penalized", func(t *testing.T) {
		got, err := ListEvaluations(ctx, db, ListQuery{InstanceKey: "a.txt", IncludePenalized: true})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("by run", func(t *testing.T) {
		got, err := ListEvaluations(ctx, db, ListQuery{RunID: "r2"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a.txt", got[0].InstanceKey)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := ListEvaluations(ctx, db, ListQuery{Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 100, got[0].Objective)
	})
}

func TestCountEvaluations(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	require.NoError(t, BatchRecordEvaluations(ctx, db, []Evaluation{
		{InstanceKey: "a.txt", RunID: "r1", Objective: 300},
		{InstanceKey: "a.txt", RunID: "r1", Objective: 400, Penalized: true},
		{InstanceKey: "b.txt", RunID: "r1", Objective: 100},
	}))

	count, err := CountEvaluations(ctx, db, "a.txt", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = CountEvaluations(ctx, db, "a.txt", true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = CountEvaluations(ctx, db, "", true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestBatchRecordEvaluations_Empty(t *testing.T) {
	db := openTestStore(t)
	require.NoError(t, BatchRecordEvaluations(context.Background(), db, nil))
}
