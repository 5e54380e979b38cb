package match

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Filter evaluates whether an instance passes filter criteria.
//
// Key-based filters (regex) need only the key. Dimension filters need
// the job and machine counts from the instance header, which the catalog
// scanner obtains by peeking the first lines of the file; such filters
// report RequiresPeek so the scanner can skip the extra read when no
// dimension criteria are configured.
type Filter interface {
	// Match returns true if the instance passes the filter.
	// jobs and machines are zero when the header was not peeked.
	Match(key string, jobs, machines int) bool

	// RequiresPeek returns true if the filter needs header dimensions.
	RequiresPeek() bool

	// String returns a human-readable description of the filter.
	String() string
}

// FilterConfig holds filter criteria from a suite manifest or CLI flags.
type FilterConfig struct {
	// Jobs constrains the instance's job count.
	Jobs *RangeConfig `json:"jobs,omitempty" yaml:"jobs,omitempty"`

	// Machines constrains the instance's machine count.
	Machines *RangeConfig `json:"machines,omitempty" yaml:"machines,omitempty"`

	// KeyRegex is a regex applied to instance keys after glob matching.
	KeyRegex string `json:"key_regex,omitempty" yaml:"key_regex,omitempty"`
}

// RangeConfig is an inclusive integer range. Zero means unconstrained.
type RangeConfig struct {
	Min int `json:"min,omitempty" yaml:"min,omitempty"`
	Max int `json:"max,omitempty" yaml:"max,omitempty"`
}

// Filter errors.
var (
	ErrInvalidRange = errors.New("invalid dimension range")
	ErrInvalidRegex = errors.New("invalid regex pattern")
)

// DimFilter filters instances by job and machine counts.
type DimFilter struct {
	jobsMin, jobsMax         int // 0 means unconstrained
	machinesMin, machinesMax int
}

// NewDimFilter creates a dimension filter from config.
// Returns nil if neither dimension is constrained.
func NewDimFilter(jobs, machines *RangeConfig) (*DimFilter, error) {
	if jobs == nil && machines == nil {
		return nil, nil
	}

	f := &DimFilter{}
	if jobs != nil {
		if err := checkRange(jobs, "jobs"); err != nil {
			return nil, err
		}
		f.jobsMin, f.jobsMax = jobs.Min, jobs.Max
	}
	if machines != nil {
		if err := checkRange(machines, "machines"); err != nil {
			return nil, err
		}
		f.machinesMin, f.machinesMax = machines.Min, machines.Max
	}
	if f.jobsMin == 0 && f.jobsMax == 0 && f.machinesMin == 0 && f.machinesMax == 0 {
		return nil, nil
	}
	return f, nil
}

func checkRange(r *RangeConfig, name string) error {
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("%w: %s bounds must be >= 0", ErrInvalidRange, name)
	}
	if r.Min > 0 && r.Max > 0 && r.Min > r.Max {
		return fmt.Errorf("%w: %s min (%d) > max (%d)", ErrInvalidRange, name, r.Min, r.Max)
	}
	return nil
}

// Match returns true if the peeked dimensions fall within the ranges.
func (f *DimFilter) Match(_ string, jobs, machines int) bool {
	if f.jobsMin > 0 && jobs < f.jobsMin {
		return false
	}
	if f.jobsMax > 0 && jobs > f.jobsMax {
		return false
	}
	if f.machinesMin > 0 && machines < f.machinesMin {
		return false
	}
	if f.machinesMax > 0 && machines > f.machinesMax {
		return false
	}
	return true
}

// RequiresPeek returns true: dimensions come from the instance header.
func (f *DimFilter) RequiresPeek() bool {
	return true
}

// String returns a human-readable description.
func (f *DimFilter) String() string {
	parts := make([]string, 0, 2)
	if f.jobsMin > 0 || f.jobsMax > 0 {
		parts = append(parts, describeRange("jobs", f.jobsMin, f.jobsMax))
	}
	if f.machinesMin > 0 || f.machinesMax > 0 {
		parts = append(parts, describeRange("machines", f.machinesMin, f.machinesMax))
	}
	return strings.Join(parts, ", ")
}

func describeRange(name string, min, max int) string {
	switch {
	case min > 0 && max > 0:
		return fmt.Sprintf("%s: %d-%d", name, min, max)
	case min > 0:
		return fmt.Sprintf("%s: >= %d", name, min)
	default:
		return fmt.Sprintf("%s: <= %d", name, max)
	}
}

// RegexFilter filters instances by key pattern.
type RegexFilter struct {
	pattern *regexp.Regexp
	raw     string
}

// NewRegexFilter creates a regex filter. Returns nil for an empty pattern.
func NewRegexFilter(pattern string) (*RegexFilter, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
	}
	return &RegexFilter{pattern: re, raw: pattern}, nil
}

// Match returns true if the key matches the regex.
func (f *RegexFilter) Match(key string, _, _ int) bool {
	return f.pattern.MatchString(key)
}

// RequiresPeek returns false: the key suffices.
func (f *RegexFilter) RequiresPeek() bool {
	return false
}

// String returns a human-readable description.
func (f *RegexFilter) String() string {
	return "key_regex: " + f.raw
}

// CompositeFilter combines filters with AND semantics.
type CompositeFilter struct {
	filters []Filter
}

// NewFilterFromConfig builds a CompositeFilter from config.
// Returns nil if no filters are configured.
func NewFilterFromConfig(cfg *FilterConfig) (*CompositeFilter, error) {
	if cfg == nil {
		return nil, nil
	}

	var filters []Filter

	dim, err := NewDimFilter(cfg.Jobs, cfg.Machines)
	if err != nil {
		return nil, err
	}
	if dim != nil {
		filters = append(filters, dim)
	}

	re, err := NewRegexFilter(cfg.KeyRegex)
	if err != nil {
		return nil, err
	}
	if re != nil {
		filters = append(filters, re)
	}

	if len(filters) == 0 {
		return nil, nil
	}
	return &CompositeFilter{filters: filters}, nil
}

// Match returns true if all filters pass.
func (f *CompositeFilter) Match(key string, jobs, machines int) bool {
	for _, filter := range f.filters {
		if !filter.Match(key, jobs, machines) {
			return false
		}
	}
	return true
}

// RequiresPeek returns true if any filter needs header dimensions.
func (f *CompositeFilter) RequiresPeek() bool {
	for _, filter := range f.filters {
		if filter.RequiresPeek() {
			return true
		}
	}
	return false
}

// String returns a human-readable description.
func (f *CompositeFilter) String() string {
	if len(f.filters) == 0 {
		return "no filters"
	}
	parts := make([]string, len(f.filters))
	for i, filter := range f.filters {
		parts[i] = filter.String()
	}
	return strings.Join(parts, ", ")
}
