package suite

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rastion/openshop-problem/pkg/match"
)

// validManifestYAML returns a minimal valid manifest in YAML format.
func validManifestYAML() string {
	return `version: "1.0"
source:
  type: s3
  bucket: benchmark-instances
match:
  includes:
    - "**/*.txt"
`
}

// validManifestJSON returns a minimal valid manifest in JSON format.
func validManifestJSON() string {
	return `{
  "version": "1.0",
  "source": {
    "type": "s3",
    "bucket": "benchmark-instances"
  },
  "match": {
    "includes": ["**/*.txt"]
  }
}`
}

// fullManifestYAML returns a complete manifest with all optional fields.
func fullManifestYAML() string {
	return `version: "1.0"
source:
  type: s3
  bucket: benchmark-instances
  region: us-east-1
  endpoint: http://localhost:9000
  profile: production
match:
  includes:
    - "taillard/**/*.txt"
    - "bench/**/*.txt"
  excludes:
    - "**/broken/**"
  include_hidden: true
  filters:
    jobs:
      min: 10
      max: 20
    machines:
      max: 10
    key_regex: "tai\\d+"
scan:
  concurrency: 8
  rate_limit: 100.5
  progress_every: 500
  peek_headers: true
output:
  destination: file:/tmp/output.jsonl
  progress: false
`
}

func writeManifest(t *testing.T, filename, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), filename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		filename    string
		wantErr     bool
		errContains string
		validate    func(t *testing.T, m *Manifest)
	}{
		{
			name:     "valid YAML manifest",
			content:  validManifestYAML(),
			filename: "suite.yaml",
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "1.0", m.Version)
				assert.Equal(t, "s3", m.Source.Type)
				assert.Equal(t, "benchmark-instances", m.Source.Bucket)
				assert.Equal(t, []string{"**/*.txt"}, m.Match.Includes)
				// Check defaults were applied
				assert.Equal(t, DefaultConcurrency, m.Scan.Concurrency)
				assert.Equal(t, DefaultProgressEvery, m.Scan.ProgressEvery)
				assert.Equal(t, DefaultDestination, m.Output.Destination)
				assert.True(t, m.Output.ProgressEnabled())
			},
		},
		{
			name:     "valid JSON manifest",
			content:  validManifestJSON(),
			filename: "suite.json",
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "1.0", m.Version)
				assert.Equal(t, "s3", m.Source.Type)
				assert.Equal(t, "benchmark-instances", m.Source.Bucket)
			},
		},
		{
			name:     "full manifest",
			content:  fullManifestYAML(),
			filename: "suite.yaml",
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "us-east-1", m.Source.Region)
				assert.Equal(t, "http://localhost:9000", m.Source.Endpoint)
				assert.Len(t, m.Match.Includes, 2)
				assert.Len(t, m.Match.Excludes, 1)
				assert.True(t, m.Match.IncludeHidden)
				require.NotNil(t, m.Match.Filters)
				require.NotNil(t, m.Match.Filters.Jobs)
				assert.Equal(t, 10, m.Match.Filters.Jobs.Min)
				assert.Equal(t, 20, m.Match.Filters.Jobs.Max)
				assert.Equal(t, `tai\d+`, m.Match.Filters.KeyRegex)
				assert.Equal(t, 8, m.Scan.Concurrency)
				assert.Equal(t, 100.5, m.Scan.RateLimit)
				assert.True(t, m.Scan.PeekHeaders)
				assert.Equal(t, "file:/tmp/output.jsonl", m.Output.Destination)
				assert.False(t, m.Output.ProgressEnabled())
			},
		},
		{
			name: "file source",
			content: `version: "1.0"
source:
  type: file
  base_dir: /data/instances
match:
  includes:
    - "**/*.txt"
`,
			filename: "suite.yaml",
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "file", m.Source.Type)
				assert.Equal(t, "/data/instances", m.Source.BaseDir)
			},
		},
		{
			name: "missing version",
			content: `source:
  type: s3
  bucket: b
match:
  includes: ["**"]
`,
			filename:    "suite.yaml",
			wantErr:     true,
			errContains: "version",
		},
		{
			name: "bad version",
			content: `version: "2.0"
source:
  type: s3
  bucket: b
match:
  includes: ["**"]
`,
			filename: "suite.yaml",
			wantErr:  true,
		},
		{
			name: "s3 source without bucket",
			content: `version: "1.0"
source:
  type: s3
match:
  includes: ["**"]
`,
			filename: "suite.yaml",
			wantErr:  true,
		},
		{
			name: "file source without base_dir",
			content: `version: "1.0"
source:
  type: file
match:
  includes: ["**"]
`,
			filename: "suite.yaml",
			wantErr:  true,
		},
		{
			name: "empty includes",
			content: `version: "1.0"
source:
  type: s3
  bucket: b
match:
  includes: []
`,
			filename: "suite.yaml",
			wantErr:  true,
		},
		{
			name: "unknown top-level field rejected",
			content: `version: "1.0"
source:
  type: s3
  bucket: b
match:
  includes: ["**"]
bogus: true
`,
			filename: "suite.yaml",
			wantErr:  true,
		},
		{
			name:        "invalid YAML",
			content:     "version: [unclosed",
			filename:    "suite.yaml",
			wantErr:     true,
			errContains: "invalid YAML",
		},
		{
			name:        "empty file",
			content:     "",
			filename:    "suite.yaml",
			wantErr:     true,
			errContains: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, tt.filename, tt.content)

			m, err := Load(path)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			require.NotNil(t, m)
			if tt.validate != nil {
				tt.validate(t, m)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadFromReader(t *testing.T) {
	m, err := LoadFromReader(strings.NewReader(validManifestYAML()), "suite.yaml")
	require.NoError(t, err)
	assert.Equal(t, "benchmark-instances", m.Source.Bucket)
}

func TestLoadFromBytes_UnknownExtension(t *testing.T) {
	// YAML content without a recognized extension: YAML tried first.
	m, err := LoadFromBytes([]byte(validManifestYAML()), "suite")
	require.NoError(t, err)
	assert.Equal(t, "s3", m.Source.Type)

	// JSON is a YAML subset, so it loads through either path.
	m, err = LoadFromBytes([]byte(validManifestJSON()), "suite")
	require.NoError(t, err)
	assert.Equal(t, "s3", m.Source.Type)
}

func TestValidate_StructRoundTrip(t *testing.T) {
	m := &Manifest{
		Version: "1.0",
		Source:  SourceConfig{Type: "s3", Bucket: "b"},
		Match:   MatchConfig{Includes: []string{"**/*.txt"}},
	}
	assert.NoError(t, Validate(m))

	m.Version = "9.9"
	err := Validate(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Path: "/version", Message: "must be 1.0"},
	}
	assert.Equal(t, "/version: must be 1.0", errs.Error())

	errs = append(errs, ValidationError{Message: "another failure"})
	msg := errs.Error()
	assert.Contains(t, msg, "2 errors")
	assert.Contains(t, msg, "/version: must be 1.0")
	assert.Contains(t, msg, "another failure")
}

func TestApplyDefaults(t *testing.T) {
	m := &Manifest{
		Version: "1.0",
		Source:  SourceConfig{Type: "file", BaseDir: "/data"},
		Match: MatchConfig{
			Includes: []string{"**"},
			Filters:  &match.FilterConfig{Jobs: &match.RangeConfig{Min: 4}},
		},
	}
	m.ApplyDefaults()

	assert.Equal(t, DefaultConcurrency, m.Scan.Concurrency)
	assert.Equal(t, DefaultProgressEvery, m.Scan.ProgressEvery)
	assert.Equal(t, DefaultDestination, m.Output.Destination)
	require.NotNil(t, m.Output.Progress)
	assert.True(t, *m.Output.Progress)

	// Explicit values are preserved.
	explicit := false
	m2 := &Manifest{
		Scan:   ScanConfig{Concurrency: 16},
		Output: OutputConfig{Destination: "file:/out.jsonl", Progress: &explicit},
	}
	m2.ApplyDefaults()
	assert.Equal(t, 16, m2.Scan.Concurrency)
	assert.Equal(t, "file:/out.jsonl", m2.Output.Destination)
	assert.False(t, m2.Output.ProgressEnabled())
}
