// Package runlog records benchmark run provenance on disk.
//
// Every scan or evaluation run gets a run record under the app data dir,
// so later result imports and queries can be traced back to the manifest
// and source that produced them.
package runlog

import "time"

// RunState is the lifecycle state of a recorded run.
//
// NOTE: These values are persisted in run.json and are part of the stable
// on-disk contract.
type RunState string

const (
	RunStateRunning RunState = "running"
	RunStateSuccess RunState = "success"
	RunStatePartial RunState = "partial"
	RunStateFailed  RunState = "failed"
)

// RunCounts summarizes what a run processed.
type RunCounts struct {
	KeysSeen    int64 `json:"keys_seen,omitempty"`
	KeysMatched int64 `json:"keys_matched,omitempty"`
	Solutions   int64 `json:"solutions,omitempty"`
	Evaluations int64 `json:"evaluations,omitempty"`
	Errors      int64 `json:"errors,omitempty"`
}

// RunRecord is the persistent record written to run.json.
//
// The schema is designed for backward-compatible extension (additive fields).
type RunRecord struct {
	RunID string `json:"run_id"`
	Name  string `json:"name,omitempty"`

	State RunState `json:"state"`

	// ManifestPath is the suite manifest that configured the run, if any.
	ManifestPath string `json:"manifest_path,omitempty"`

	// Source identifies the instance source ("file" or "s3").
	Source string `json:"source,omitempty"`

	// OutputPath is where the run's JSONL stream was written, if not stdout.
	OutputPath string `json:"output_path,omitempty"`

	// Seed is the RNG seed for generation runs, so any recorded random
	// stream can be reproduced exactly.
	Seed *int64 `json:"seed,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	Counts RunCounts `json:"counts,omitempty"`

	// Error holds the failure message for failed runs.
	Error string `json:"error,omitempty"`
}
