// Package output provides JSONL output for scan and evaluation results.
//
// Output is structured as typed record envelopes containing instances,
// solutions, evaluations, errors, and progress updates. Each line is a
// self-contained JSON object that can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: openshop.<type>.v<version>
const (
	// TypeInstance identifies instance listing records.
	TypeInstance = "openshop.instance.v1"

	// TypeSolution identifies solution records.
	TypeSolution = "openshop.solution.v1"

	// TypeEvaluation identifies evaluation result records.
	TypeEvaluation = "openshop.evaluation.v1"

	// TypeError identifies error records.
	TypeError = "openshop.error.v1"

	// TypeProgress identifies progress update records.
	TypeProgress = "openshop.progress.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "openshop.summary.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line of JSONL output contains a Record with a type-specific
// payload in the Data field. The type field determines how to
// interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "openshop.instance.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// RunID is the correlation ID for this run.
	RunID string `json:"run_id"`

	// Source identifies the instance source (e.g., "s3", "file").
	Source string `json:"source"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// InstanceRecord is the data payload for instance listings.
//
// This contains the metadata for a single instance that matched
// the scan patterns, including dimensions when the header was peeked.
type InstanceRecord struct {
	// Key is the full instance key (path) in the source.
	Key string `json:"key"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// ETag is the entity tag, typically an MD5 hash of the file.
	ETag string `json:"etag,omitempty"`

	// LastModified is when the file was last modified.
	LastModified time.Time `json:"last_modified"`

	// Jobs is the job count from the instance header.
	// Only populated when header peeking is enabled.
	Jobs int `json:"jobs,omitempty"`

	// Machines is the machine count from the instance header.
	// Only populated when header peeking is enabled.
	Machines int `json:"machines,omitempty"`
}

// SolutionRecord is the data payload for generated solutions.
type SolutionRecord struct {
	// Key is the instance key the solution belongs to.
	Key string `json:"key"`

	// Seed is the RNG seed used for generation, if any.
	Seed *int64 `json:"seed,omitempty"`

	// JobsOrder is the per-machine job visiting order.
	JobsOrder [][]int `json:"jobs_order"`

	// MachinesOrder is the per-job machine visiting order.
	MachinesOrder [][]int `json:"machines_order"`

	// Objective is the externally computed makespan, when the emitting
	// scheduler has already evaluated the solution.
	Objective *int `json:"objective,omitempty"`
}

// EvaluationRecord is the data payload for evaluation results.
type EvaluationRecord struct {
	// Key is the instance key the solution was evaluated against.
	Key string `json:"key"`

	// Objective is the evaluation result. Incomplete solutions
	// evaluate to the penalty objective rather than failing.
	Objective int `json:"objective"`

	// Penalized indicates the penalty objective was applied.
	Penalized bool `json:"penalized"`

	// Reason describes why the penalty was applied, if it was.
	Reason string `json:"reason,omitempty"`
}

// ErrorRecord is the data payload for errors.
//
// Errors are emitted as records rather than failing the entire scan,
// allowing partial results when some operations fail.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Key is the instance key related to this error, if applicable.
	Key string `json:"key,omitempty"`

	// Prefix is the prefix being listed when the error occurred.
	Prefix string `json:"prefix,omitempty"`

	// Details contains additional error context.
	Details any `json:"details,omitempty"`
}

// Error codes for ErrorRecord.
const (
	// ErrCodeAccessDenied indicates permission failure.
	ErrCodeAccessDenied = "ACCESS_DENIED"

	// ErrCodeNotFound indicates the instance or bucket was not found.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeParse indicates the instance file could not be parsed.
	ErrCodeParse = "PARSE_ERROR"

	// ErrCodeTimeout indicates an operation timed out.
	ErrCodeTimeout = "TIMEOUT"

	// ErrCodeThrottled indicates rate limiting.
	ErrCodeThrottled = "THROTTLED"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal = "INTERNAL"
)

// ProgressRecord is the data payload for progress updates.
//
// Progress records are emitted periodically during scans to provide
// visibility into long-running operations.
type ProgressRecord struct {
	// Phase indicates the current scan phase.
	Phase string `json:"phase"`

	// KeysSeen is the total number of keys seen so far.
	KeysSeen int64 `json:"keys_seen"`

	// KeysMatched is the number of keys matching patterns.
	KeysMatched int64 `json:"keys_matched"`

	// BytesTotal is the cumulative size of matched instances in bytes.
	BytesTotal int64 `json:"bytes_total"`

	// Prefix is the current prefix being listed, if applicable.
	Prefix string `json:"prefix,omitempty"`
}

// Progress phase constants.
const (
	// PhaseStarting indicates the scan is initializing.
	PhaseStarting = "starting"

	// PhaseListing indicates keys are being listed.
	PhaseListing = "listing"

	// PhasePeeking indicates instance headers are being read.
	PhasePeeking = "peeking"

	// PhaseComplete indicates the scan has finished.
	PhaseComplete = "complete"
)

// SummaryRecord is the data payload for final summaries.
//
// A summary record is emitted at the end of a scan with aggregate
// statistics.
type SummaryRecord struct {
	// KeysSeen is the total number of keys seen.
	KeysSeen int64 `json:"keys_seen"`

	// KeysMatched is the number of keys matching patterns.
	KeysMatched int64 `json:"keys_matched"`

	// BytesTotal is the cumulative size of matched instances in bytes.
	BytesTotal int64 `json:"bytes_total"`

	// Duration is the total scan duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`

	// Errors is the count of errors encountered.
	Errors int64 `json:"errors"`

	// Prefixes lists the prefixes that were scanned.
	Prefixes []string `json:"prefixes,omitempty"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
