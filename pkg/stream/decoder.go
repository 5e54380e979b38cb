// Package stream decodes JSONL record streams produced by the output package.
//
// A stream is a sequence of newline-delimited JSON records, each carrying a
// typed envelope (see output.Record). The decoder reads one record per call
// and enforces a per-line size limit to bound memory on malformed input.
package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Rastion/openshop-problem/pkg/output"
)

// DefaultMaxLineBytes is the default maximum size of a single JSONL line.
const DefaultMaxLineBytes = 1 << 20

// ErrLineTooLong indicates a JSONL line exceeded the configured size limit.
var ErrLineTooLong = errors.New("jsonl line exceeds max bytes")

// Decoder reads output records from a JSONL stream.
type Decoder struct {
	r            *bufio.Reader
	maxLineBytes int
	line         int
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r), maxLineBytes: DefaultMaxLineBytes}
}

// SetMaxLineBytes sets the maximum accepted line length.
// Values <= 0 restore the default.
func (d *Decoder) SetMaxLineBytes(n int) {
	if n <= 0 {
		d.maxLineBytes = DefaultMaxLineBytes
		return
	}
	d.maxLineBytes = n
}

// Next returns the next record in the stream.
//
// Blank lines terminate the stream. Returns io.EOF when the stream is
// exhausted, or a DecodeError for malformed lines.
func (d *Decoder) Next() (output.Record, error) {
	line, err := readLineLimited(d.r, d.maxLineBytes)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return output.Record{}, io.EOF
		}
		return output.Record{}, &DecodeError{Line: d.line + 1, Err: err}
	}
	d.line++

	if len(bytes.TrimSpace(line)) == 0 {
		return output.Record{}, io.EOF
	}

	var rec output.Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return output.Record{}, &DecodeError{Line: d.line, Err: err}
	}
	if rec.Type == "" {
		return output.Record{}, &DecodeError{Line: d.line, Err: errors.New("record missing type")}
	}

	return rec, nil
}

// DecodeError reports a malformed record with its 1-based line number.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeData unmarshals a record's payload into v.
//
// The caller is expected to dispatch on rec.Type first and pass a pointer
// to the matching payload struct (e.g., *output.InstanceRecord).
func DecodeData(rec output.Record, v any) error {
	if len(rec.Data) == 0 {
		return fmt.Errorf("record %s has no data payload", rec.Type)
	}
	if err := json.Unmarshal(rec.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", rec.Type, err)
	}
	return nil
}

func readLineLimited(r *bufio.Reader, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLineBytes
	}

	var out []byte
	for {
		frag, err := r.ReadSlice('\n')
		out = append(out, frag...)
		if len(out) > maxBytes {
			return nil, ErrLineTooLong
		}
		if err == nil {
			return bytes.TrimSuffix(out, []byte("\n")), nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(out) == 0 {
				return nil, io.EOF
			}
			return out, nil
		}
		return nil, err
	}
}
