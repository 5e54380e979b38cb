package stream

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rastion/openshop-problem/pkg/output"
)

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func encodeRecords(t *testing.T, recs ...output.Record) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, rec := range recs {
		buf.Write(mustJSON(t, rec))
		buf.WriteByte('\n')
	}
	return &buf
}

func TestDecoder_RecordSequence(t *testing.T) {
	now := time.Now().UTC()
	instance := output.Record{
		Type:   output.TypeInstance,
		TS:     now,
		RunID:  "run-1",
		Source: "s3",
		Data:   mustJSON(t, output.InstanceRecord{Key: "taillard/tai4_4_0.txt", Size: 128, Jobs: 4, Machines: 4}),
	}
	eval := output.Record{
		Type:   output.TypeEvaluation,
		TS:     now,
		RunID:  "run-1",
		Source: "s3",
		Data:   mustJSON(t, output.EvaluationRecord{Key: "taillard/tai4_4_0.txt", Objective: 193}),
	}
	summary := output.Record{
		Type:   output.TypeSummary,
		TS:     now,
		RunID:  "run-1",
		Source: "s3",
		Data:   mustJSON(t, output.SummaryRecord{KeysSeen: 1, KeysMatched: 1}),
	}

	d := NewDecoder(encodeRecords(t, instance, eval, summary))

	rec, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, output.TypeInstance, rec.Type)
	assert.Equal(t, "run-1", rec.RunID)

	var inst output.InstanceRecord
	require.NoError(t, DecodeData(rec, &inst))
	assert.Equal(t, "taillard/tai4_4_0.txt", inst.Key)
	assert.Equal(t, 4, inst.Jobs)

	rec, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, output.TypeEvaluation, rec.Type)

	rec, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, output.TypeSummary, rec.Type)

	_, err = d.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDecoder_RoundTripWithWriter(t *testing.T) {
	var buf bytes.Buffer
	w := output.NewJSONLWriter(&buf, "run-rt", "file")

	ctx := t.Context()
	require.NoError(t, w.WriteInstance(ctx, &output.InstanceRecord{Key: "a.txt", Size: 10}))
	require.NoError(t, w.WriteSolution(ctx, &output.SolutionRecord{
		Key:           "a.txt",
		JobsOrder:     [][]int{{0, 1}, {1, 0}},
		MachinesOrder: [][]int{{1, 0}, {0, 1}},
	}))
	require.NoError(t, w.Close())

	d := NewDecoder(&buf)

	rec, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, output.TypeInstance, rec.Type)

	rec, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, output.TypeSolution, rec.Type)

	var sol output.SolutionRecord
	require.NoError(t, DecodeData(rec, &sol))
	assert.Equal(t, [][]int{{0, 1}, {1, 0}}, sol.JobsOrder)

	_, err = d.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDecoder_EmptyStream(t *testing.T) {
	d := NewDecoder(strings.NewReader(""))
	_, err := d.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDecoder_BlankLineTerminates(t *testing.T) {
	input := `{"type":"openshop.progress.v1","ts":"2026-01-01T00:00:00Z","run_id":"r","source":"file","data":{"phase":"listing"}}` + "\n\n"
	d := NewDecoder(strings.NewReader(input))

	rec, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, output.TypeProgress, rec.Type)

	_, err = d.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDecoder_MalformedLine(t *testing.T) {
	d := NewDecoder(strings.NewReader("{not json}\n"))

	_, err := d.Next()
	require.Error(t, err)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Line)
}

func TestDecoder_MissingType(t *testing.T) {
	d := NewDecoder(strings.NewReader(`{"ts":"2026-01-01T00:00:00Z"}` + "\n"))

	_, err := d.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing type")
}

func TestDecoder_LineTooLong(t *testing.T) {
	rec := output.Record{
		Type: output.TypeInstance,
		Data: mustJSON(t, output.InstanceRecord{Key: strings.Repeat("x", 4096)}),
	}
	buf := encodeRecords(t, rec)

	d := NewDecoder(buf)
	d.SetMaxLineBytes(256)

	_, err := d.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLineTooLong)
}

func TestDecoder_LongLineSpansBufferedReads(t *testing.T) {
	// Key much larger than bufio's default buffer forces the
	// ErrBufferFull continuation path in readLineLimited.
	rec := output.Record{
		Type: output.TypeInstance,
		Data: mustJSON(t, output.InstanceRecord{Key: strings.Repeat("k", 64*1024)}),
	}
	d := NewDecoder(encodeRecords(t, rec))

	got, err := d.Next()
	require.NoError(t, err)

	var inst output.InstanceRecord
	require.NoError(t, DecodeData(got, &inst))
	assert.Len(t, inst.Key, 64*1024)
}

func TestDecoder_FinalLineWithoutNewline(t *testing.T) {
	rec := output.Record{
		Type: output.TypeError,
		Data: mustJSON(t, output.ErrorRecord{Key: "a.txt", Code: output.ErrCodeParse, Message: "bad header"}),
	}
	raw := mustJSON(t, rec)

	d := NewDecoder(bytes.NewReader(raw))

	got, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, output.TypeError, got.Type)

	_, err = d.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDecodeData_Errors(t *testing.T) {
	err := DecodeData(output.Record{Type: output.TypeInstance}, &output.InstanceRecord{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data payload")

	rec := output.Record{Type: output.TypeInstance, Data: json.RawMessage(`{"size":"not-a-number"}`)}
	err = DecodeData(rec, &output.InstanceRecord{})
	require.Error(t, err)
}
