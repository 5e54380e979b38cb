// Package match selects benchmark instance keys using doublestar glob
// semantics, with static-prefix derivation for efficient source listing
// and dimension filters evaluated against peeked instance headers.
package match

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher evaluates include/exclude patterns against instance keys.
//
// A key matches when it satisfies at least one include pattern, no
// exclude pattern, and is not hidden (unless IncludeHidden is set).
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	includes      []string
	excludes      []string
	prefixes      []string
	includeHidden bool
}

// Config configures a Matcher.
type Config struct {
	// Includes are glob patterns that keys must match (at least one).
	// Required: at least one include pattern must be specified.
	Includes []string

	// Excludes are glob patterns that keys must not match (any).
	Excludes []string

	// IncludeHidden controls whether keys with dot-prefixed path
	// segments are matched. Default: false.
	IncludeHidden bool
}

// Matcher errors.
var (
	// ErrNoIncludes is returned when no include patterns are provided.
	ErrNoIncludes = errors.New("at least one include pattern is required")

	// ErrInvalidPattern is returned when a pattern cannot be compiled.
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// PatternError wraps pattern-related errors with the offending pattern.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New creates a Matcher from the given configuration.
//
// Patterns are validated eagerly so Match never fails at scan time.
func New(cfg Config) (*Matcher, error) {
	if len(cfg.Includes) == 0 {
		return nil, ErrNoIncludes
	}

	includes, err := compilePatterns(cfg.Includes)
	if err != nil {
		return nil, err
	}
	excludes, err := compilePatterns(cfg.Excludes)
	if err != nil {
		return nil, err
	}

	return &Matcher{
		includes:      includes,
		excludes:      excludes,
		prefixes:      DerivePrefixes(includes),
		includeHidden: cfg.IncludeHidden,
	}, nil
}

func compilePatterns(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if !doublestar.ValidatePattern(r) {
			return nil, &PatternError{Pattern: r, Err: ErrInvalidPattern}
		}
		out = append(out, r)
	}
	return out, nil
}

// Match reports whether the key passes the include/exclude patterns.
//
// Keys are matched as-is: instance keys are opaque strings and any
// character is valid in them.
func (m *Matcher) Match(key string) bool {
	if !m.includeHidden && IsHidden(key) {
		return false
	}

	matched := false
	for _, inc := range m.includes {
		if matchPattern(inc, key) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, exc := range m.excludes {
		if matchPattern(exc, key) {
			return false
		}
	}
	return true
}

// Prefixes returns the deduplicated static prefixes derived from the
// include patterns, for scoping source List calls. An empty string in
// the result means at least one pattern needs a full listing.
func (m *Matcher) Prefixes() []string {
	return m.prefixes
}

// IncludePatterns returns the configured include patterns.
func (m *Matcher) IncludePatterns() []string {
	return append([]string(nil), m.includes...)
}

// ExcludePatterns returns the configured exclude patterns.
func (m *Matcher) ExcludePatterns() []string {
	return append([]string(nil), m.excludes...)
}

// matchPattern matches a key against a doublestar pattern.
// Patterns were validated at construction, so errors cannot occur here.
func matchPattern(pattern, key string) bool {
	matched, err := doublestar.Match(pattern, key)
	if err != nil {
		return false
	}
	return matched
}

// IsHidden reports whether any path segment of the key starts with a
// dot, following the Unix hidden-file convention.
func IsHidden(key string) bool {
	for _, seg := range strings.Split(key, "/") {
		if seg != "" && strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
