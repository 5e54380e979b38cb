// Package suite provides loading and validation of benchmark suite manifests.
//
// A suite manifest is a YAML or JSON file that configures all aspects of a
// benchmark run: instance source, key matching, scan behavior, and output.
//
// Manifests are validated against a JSON Schema to ensure correctness before
// execution. The schema enforces strict typing and disallows unknown properties.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	source:
//	  type: s3
//	  bucket: benchmark-instances
//	  region: us-east-1
//	match:
//	  includes:
//	    - "taillard/**/*.txt"
//	  excludes:
//	    - "**/broken/**"
//	  filters:
//	    jobs:
//	      min: 10
//	      max: 20
//	scan:
//	  concurrency: 4
//	  peek_headers: true
//	output:
//	  destination: stdout
//	  progress: true
package suite

import "github.com/Rastion/openshop-problem/pkg/match"

// Manifest represents a validated suite manifest.
//
// A manifest configures all aspects of a benchmark run. Required fields
// are Version, Source, and Match. Scan and Output are optional with
// sensible defaults.
type Manifest struct {
	// Schema is an optional JSON Schema reference for editor support.
	// Example: "https://schemas.rastion.dev/openshop/v1.0.0/suite-manifest.schema.json"
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Source configures the instance source.
	Source SourceConfig `json:"source" yaml:"source"`

	// Match configures key filtering by glob patterns.
	Match MatchConfig `json:"match" yaml:"match"`

	// Scan configures scan behavior (optional).
	Scan ScanConfig `json:"scan,omitempty" yaml:"scan,omitempty"`

	// Output configures output destination and format (optional).
	Output OutputConfig `json:"output,omitempty" yaml:"output,omitempty"`
}

// SourceConfig configures the instance source.
type SourceConfig struct {
	// Type is the source type: "file" or "s3".
	Type string `json:"type" yaml:"type"`

	// Bucket is the bucket name. Required when Type is "s3".
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// Region is the AWS region (e.g., "us-east-1"). Optional.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint is a custom endpoint URL for S3-compatible storage. Optional.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Profile is the AWS credential profile name. Optional.
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty"`

	// BaseDir is the instance directory. Required when Type is "file".
	BaseDir string `json:"base_dir,omitempty" yaml:"base_dir,omitempty"`
}

// MatchConfig configures key filtering by glob patterns and dimension filters.
type MatchConfig struct {
	// Includes is a list of glob patterns for keys to include.
	// At least one pattern is required.
	Includes []string `json:"includes" yaml:"includes"`

	// Excludes is a list of glob patterns for keys to exclude. Optional.
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`

	// IncludeHidden includes hidden files (starting with .). Default: false.
	IncludeHidden bool `json:"include_hidden,omitempty" yaml:"include_hidden,omitempty"`

	// Filters specifies additional dimension and regex filters. Optional.
	// Filters are applied after glob pattern matching with AND semantics.
	Filters *match.FilterConfig `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// ScanConfig configures scan behavior.
//
// All fields are optional with sensible defaults applied during loading.
type ScanConfig struct {
	// Concurrency is the number of concurrent list operations.
	// Range: 1-32. Default: 4.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`

	// RateLimit is the maximum requests per second (0 = unlimited).
	// Default: 0.
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`

	// ProgressEvery controls progress record frequency.
	// A progress record is emitted every N matched instances.
	// Default: 1000.
	ProgressEvery int `json:"progress_every,omitempty" yaml:"progress_every,omitempty"`

	// PeekHeaders enables header peeking even when no dimension filter
	// requires it, enriching instance records with jobs/machines counts.
	// Default: false.
	PeekHeaders bool `json:"peek_headers,omitempty" yaml:"peek_headers,omitempty"`
}

// OutputConfig configures output destination and format.
//
// All fields are optional with sensible defaults applied during loading.
type OutputConfig struct {
	// Destination is the output target.
	// Values: "stdout" or "file:/path/to/output.jsonl"
	// Default: "stdout".
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`

	// Progress enables progress record emission during the scan.
	// Default: true.
	Progress *bool `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// Default values for optional configuration fields.
const (
	// DefaultVersion is the current manifest schema version.
	DefaultVersion = "1.0"

	// DefaultConcurrency is the default number of concurrent list operations.
	DefaultConcurrency = 4

	// DefaultRateLimit is the default rate limit (0 = unlimited).
	DefaultRateLimit = 0.0

	// DefaultProgressEvery is the default progress emission frequency.
	DefaultProgressEvery = 1000

	// DefaultDestination is the default output destination.
	DefaultDestination = "stdout"

	// DefaultProgress is the default value for progress emission.
	DefaultProgress = true
)

// ApplyDefaults fills in default values for optional fields.
//
// This should be called after loading and validating the manifest to ensure
// all optional fields have sensible values.
func (m *Manifest) ApplyDefaults() {
	// Scan defaults
	if m.Scan.Concurrency == 0 {
		m.Scan.Concurrency = DefaultConcurrency
	}
	if m.Scan.ProgressEvery == 0 {
		m.Scan.ProgressEvery = DefaultProgressEvery
	}
	// RateLimit: 0 is a valid value (unlimited), so no default needed

	// Output defaults
	if m.Output.Destination == "" {
		m.Output.Destination = DefaultDestination
	}
	if m.Output.Progress == nil {
		defaultProgress := DefaultProgress
		m.Output.Progress = &defaultProgress
	}
}

// ProgressEnabled returns whether progress records should be emitted.
// Returns the configured value, or DefaultProgress if not set.
func (o *OutputConfig) ProgressEnabled() bool {
	if o.Progress == nil {
		return DefaultProgress
	}
	return *o.Progress
}
