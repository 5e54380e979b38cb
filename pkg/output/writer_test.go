package output

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []Record {
	t.Helper()
	var records []Record
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())
	return records
}

func TestJSONLWriter_WriteInstance(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "s3")
	ctx := context.Background()

	err := w.WriteInstance(ctx, &InstanceRecord{
		Key:          "bench/tai10x10_1.txt",
		Size:         512,
		ETag:         "abc123",
		LastModified: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Jobs:         10,
		Machines:     10,
	})
	require.NoError(t, err)

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, TypeInstance, records[0].Type)
	assert.Equal(t, "run-123", records[0].RunID)
	assert.Equal(t, "s3", records[0].Source)
	assert.False(t, records[0].TS.IsZero())

	var inst InstanceRecord
	require.NoError(t, json.Unmarshal(records[0].Data, &inst))
	assert.Equal(t, "bench/tai10x10_1.txt", inst.Key)
	assert.Equal(t, 10, inst.Jobs)
	assert.Equal(t, 10, inst.Machines)
}

func TestJSONLWriter_WriteEvaluation(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-1", "file")
	ctx := context.Background()

	require.NoError(t, w.WriteEvaluation(ctx, &EvaluationRecord{
		Key:       "bench/tai4x4.txt",
		Objective: 1_000_000_000,
		Penalized: true,
		Reason:    "objective not set",
	}))

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, TypeEvaluation, records[0].Type)

	var eval EvaluationRecord
	require.NoError(t, json.Unmarshal(records[0].Data, &eval))
	assert.Equal(t, 1_000_000_000, eval.Objective)
	assert.True(t, eval.Penalized)
}

func TestJSONLWriter_RecordTypes(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-1", "file")
	ctx := context.Background()

	require.NoError(t, w.WriteError(ctx, &ErrorRecord{Code: ErrCodeParse, Message: "bad token", Key: "k"}))
	require.NoError(t, w.WriteProgress(ctx, &ProgressRecord{Phase: PhaseListing, KeysSeen: 5}))
	require.NoError(t, w.WriteSolution(ctx, &SolutionRecord{Key: "k", JobsOrder: [][]int{{0}}, MachinesOrder: [][]int{{0}}}))
	require.NoError(t, w.WriteSummary(ctx, &SummaryRecord{KeysSeen: 5, KeysMatched: 3}))

	records := decodeLines(t, &buf)
	require.Len(t, records, 4)
	assert.Equal(t, TypeError, records[0].Type)
	assert.Equal(t, TypeProgress, records[1].Type)
	assert.Equal(t, TypeSolution, records[2].Type)
	assert.Equal(t, TypeSummary, records[3].Type)
}

func TestJSONLWriter_Closed(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-1", "file")
	require.NoError(t, w.Close())

	err := w.WriteProgress(context.Background(), &ProgressRecord{Phase: PhaseStarting})
	assert.ErrorIs(t, err, ErrWriterClosed)
}

func TestJSONLWriter_ContextCancelled(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-1", "file")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.WriteProgress(ctx, &ProgressRecord{Phase: PhaseStarting})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

// shortWriter writes at most 3 bytes per call to exercise the short-write loop.
type shortWriter struct {
	buf bytes.Buffer
}

func (s *shortWriter) Write(p []byte) (int, error) {
	if len(p) > 3 {
		p = p[:3]
	}
	return s.buf.Write(p)
}

func TestJSONLWriter_ShortWrites(t *testing.T) {
	sw := &shortWriter{}
	w := NewJSONLWriter(sw, "run-1", "file")

	require.NoError(t, w.WriteProgress(context.Background(), &ProgressRecord{Phase: PhaseComplete}))

	line := sw.buf.String()
	require.True(t, strings.HasSuffix(line, "\n"))

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, TypeProgress, rec.Type)
}

// failWriter always fails.
type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestJSONLWriter_WriteFailure(t *testing.T) {
	w := NewJSONLWriter(failWriter{}, "run-1", "file")

	err := w.WriteProgress(context.Background(), &ProgressRecord{Phase: PhaseStarting})
	require.Error(t, err)

	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "write", we.Op)
}

func TestJSONLWriter_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-1", "file")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = w.WriteProgress(ctx, &ProgressRecord{Phase: PhaseListing, KeysSeen: int64(n*20 + j)})
			}
		}(i)
	}
	wg.Wait()

	// Every line must be independently parseable: no interleaving.
	records := decodeLines(t, &buf)
	assert.Len(t, records, 200)
}
