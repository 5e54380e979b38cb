package resultstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Evaluation represents a row in the evaluations table.
type Evaluation struct {
	EvalID      int64
	InstanceKey string
	RunID       string

	// Objective is the evaluated makespan, or the penalty value for
	// incomplete solutions.
	Objective int

	// Penalized indicates the objective is a penalty, not a real makespan.
	Penalized bool

	// Seed is the RNG seed that produced the solution, if known.
	Seed *int64

	Jobs     int
	Machines int

	// Solution is the JSON-encoded solution payload, if recorded.
	Solution []byte

	CreatedAt time.Time
}

// RecordEvaluation inserts a single evaluation row.
func RecordEvaluation(ctx context.Context, db *sql.DB, ev Evaluation) error {
	if ctx == nil {
		ctx = context.Background()
	}

	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO evaluations
		 (instance_key, run_id, objective, penalized, seed, jobs, machines, solution, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.InstanceKey, ev.RunID, ev.Objective, boolToInt(ev.Penalized),
		ev.Seed, nullableInt(ev.Jobs), nullableInt(ev.Machines),
		nullableBytes(ev.Solution), formatDBTime(createdAt))
	if err != nil {
		return fmt.Errorf("record evaluation: %w", err)
	}

	return nil
}

// BatchRecordEvaluations inserts multiple evaluations in a single transaction.
//
// This is more efficient than individual RecordEvaluation calls when
// importing a JSONL result stream.
func BatchRecordEvaluations(ctx context.Context, db *sql.DB, evals []Evaluation) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(evals) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO evaluations
		 (instance_key, run_id, objective, penalized, seed, jobs, machines, solution, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, ev := range evals {
		createdAt := ev.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := stmt.ExecContext(ctx,
			ev.InstanceKey, ev.RunID, ev.Objective, boolToInt(ev.Penalized),
			ev.Seed, nullableInt(ev.Jobs), nullableInt(ev.Machines),
			nullableBytes(ev.Solution), formatDBTime(createdAt))
		if err != nil {
			return fmt.Errorf("exec insert for %s: %w", ev.InstanceKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// BestEvaluation returns the lowest non-penalized objective recorded for an
// instance, or nil if no feasible evaluation exists.
//
// Ties are broken by recency: the most recent row with the best objective wins.
func BestEvaluation(ctx context.Context, db *sql.DB, instanceKey string) (*Evaluation, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	row := db.QueryRowContext(ctx,
		`SELECT eval_id, instance_key, run_id, objective, penalized, seed,
		        jobs, machines, solution, created_at
		 FROM evaluations
		 WHERE instance_key = ? AND penalized = 0
		 ORDER BY objective ASC, eval_id DESC
		 LIMIT 1`,
		instanceKey)

	ev, err := scanEvaluation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("best evaluation: %w", err)
	}
	return ev, nil
}

// ListQuery filters ListEvaluations results.
type ListQuery struct {
	// InstanceKey restricts results to a single instance. Empty = all.
	InstanceKey string

	// RunID restricts results to a single run. Empty = all.
	RunID string

	// IncludePenalized includes penalty rows. Default: feasible only.
	IncludePenalized bool

	// Limit caps the number of returned rows. 0 = DefaultListLimit.
	Limit int
}

// DefaultListLimit bounds unqualified list queries.
const DefaultListLimit = 100

// ListEvaluations returns evaluations ordered by objective ascending.
func ListEvaluations(ctx context.Context, db *sql.DB, q ListQuery) ([]Evaluation, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	query := `SELECT eval_id, instance_key, run_id, objective, penalized, seed,
	                 jobs, machines, solution, created_at
	          FROM evaluations WHERE 1=1`
	var args []any

	if q.InstanceKey != "" {
		query += ` AND instance_key = ?`
		args = append(args, q.InstanceKey)
	}
	if q.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, q.RunID)
	}
	if !q.IncludePenalized {
		query += ` AND penalized = 0`
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += ` ORDER BY objective ASC, eval_id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		out = append(out, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}

	return out, nil
}

// CountEvaluations returns the number of evaluations for an instance.
// If instanceKey is empty, counts all rows.
func CountEvaluations(ctx context.Context, db *sql.DB, instanceKey string, includePenalized bool) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	query := `SELECT COUNT(*) FROM evaluations WHERE 1=1`
	var args []any
	if instanceKey != "" {
		query += ` AND instance_key = ?`
		args = append(args, instanceKey)
	}
	if !includePenalized {
		query += ` AND penalized = 0`
	}

	var count int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count evaluations: %w", err)
	}

	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row rowScanner) (*Evaluation, error) {
	var ev Evaluation
	var penalized int
	var seed sql.NullInt64
	var jobs, machines sql.NullInt64
	var solution sql.NullString
	var createdAtRaw any

	err := row.Scan(&ev.EvalID, &ev.InstanceKey, &ev.RunID, &ev.Objective,
		&penalized, &seed, &jobs, &machines, &solution, &createdAtRaw)
	if err != nil {
		return nil, err
	}

	ev.Penalized = penalized != 0
	if seed.Valid {
		s := seed.Int64
		ev.Seed = &s
	}
	if jobs.Valid {
		ev.Jobs = int(jobs.Int64)
	}
	if machines.Valid {
		ev.Machines = int(machines.Int64)
	}
	if solution.Valid {
		ev.Solution = []byte(solution.String)
	}

	createdAt, err := parseDBTime(createdAtRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	ev.CreatedAt = createdAt

	return &ev, nil
}

func formatDBTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseDBTime(v any) (time.Time, error) {
	switch raw := v.(type) {
	case time.Time:
		return raw.UTC(), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	case []byte:
		t, err := time.Parse(time.RFC3339Nano, string(raw))
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
