package resultstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/Rastion/openshop-problem/pkg/output"
	"github.com/Rastion/openshop-problem/pkg/stream"
)

// ImportStats summarizes a JSONL import.
type ImportStats struct {
	// Evaluations is the number of evaluation rows inserted.
	Evaluations int

	// Skipped is the number of records ignored (non-evaluation types).
	Skipped int
}

// importBatchSize bounds transaction size during imports.
const importBatchSize = 500

// ImportStream reads a JSONL result stream and inserts its evaluation
// records into the store.
//
// Solution records are not stored standalone: when a solution record for a
// key precedes its evaluation in the stream, the solution payload and seed
// are attached to the inserted evaluation row. All other record types are
// counted as skipped.
func ImportStream(ctx context.Context, db *sql.DB, r io.Reader) (ImportStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	dec := stream.NewDecoder(r)

	var stats ImportStats
	batch := make([]Evaluation, 0, importBatchSize)

	// Last seen solution per key, so evaluations can carry their payload.
	type pendingSolution struct {
		seed *int64
		raw  []byte
	}
	solutions := make(map[string]pendingSolution)

	for {
		rec, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read result stream: %w", err)
		}

		switch rec.Type {
		case output.TypeSolution:
			var sol output.SolutionRecord
			if err := stream.DecodeData(rec, &sol); err != nil {
				return stats, err
			}
			solutions[sol.Key] = pendingSolution{seed: sol.Seed, raw: rec.Data}
			stats.Skipped++

		case output.TypeEvaluation:
			var evalRec output.EvaluationRecord
			if err := stream.DecodeData(rec, &evalRec); err != nil {
				return stats, err
			}

			ev := Evaluation{
				InstanceKey: evalRec.Key,
				RunID:       rec.RunID,
				Objective:   evalRec.Objective,
				Penalized:   evalRec.Penalized,
				CreatedAt:   rec.TS,
			}
			if sol, ok := solutions[evalRec.Key]; ok {
				ev.Seed = sol.seed
				ev.Solution = sol.raw
			}

			batch = append(batch, ev)
			if len(batch) >= importBatchSize {
				if err := BatchRecordEvaluations(ctx, db, batch); err != nil {
					return stats, err
				}
				stats.Evaluations += len(batch)
				batch = batch[:0]
			}

		default:
			stats.Skipped++
		}
	}

	if len(batch) > 0 {
		if err := BatchRecordEvaluations(ctx, db, batch); err != nil {
			return stats, err
		}
		stats.Evaluations += len(batch)
	}

	return stats, nil
}
