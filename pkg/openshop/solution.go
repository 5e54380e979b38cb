package openshop

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Solution is a candidate produced by a search procedure or the random
// generator.
//
// Nil order slices represent "field absent": Evaluate treats them as the
// malformed-shape case and returns the penalty. DecodeSolution is the
// strict constructor guarding the boundary with external solvers.
type Solution struct {
	// JobsOrder has one permutation of job indices per machine: the order
	// in which that machine will process jobs.
	JobsOrder [][]int `json:"jobs_order" yaml:"jobs_order"`

	// MachinesOrder has one permutation of machine indices per job: the
	// order in which that job's activities are attempted.
	MachinesOrder [][]int `json:"machines_order" yaml:"machines_order"`

	// Objective is the makespan computed by an external scheduler.
	// Nil means "not yet evaluated".
	Objective *int `json:"objective,omitempty" yaml:"objective,omitempty"`
}

// Solution decode errors.
var (
	// ErrMissingJobsOrder indicates the jobs_order field is absent.
	ErrMissingJobsOrder = errors.New("solution is missing jobs_order")

	// ErrMissingMachinesOrder indicates the machines_order field is absent.
	ErrMissingMachinesOrder = errors.New("solution is missing machines_order")
)

// DecodeSolution parses a JSON solution document.
//
// Unlike Evaluate, decoding is strict: both ordering collections must be
// present or an error is returned. This is the point where foreign shapes
// from external solvers fail; once a *Solution exists, Evaluate stays
// permissive.
func DecodeSolution(data []byte) (*Solution, error) {
	var sol Solution
	if err := json.Unmarshal(data, &sol); err != nil {
		return nil, fmt.Errorf("decode solution: %w", err)
	}
	if sol.JobsOrder == nil {
		return nil, ErrMissingJobsOrder
	}
	if sol.MachinesOrder == nil {
		return nil, ErrMissingMachinesOrder
	}
	return &sol, nil
}

// WithObjective returns a copy of the solution carrying the given
// externally computed makespan.
func (s *Solution) WithObjective(objective int) *Solution {
	out := *s
	out.Objective = &objective
	return &out
}

// Validate reports whether the solution is a full pair of permutation
// collections for an instance with the given dimensions.
//
// Evaluate does not require this - it only checks field presence - but
// lint tooling and tests use it to catch index errors early.
func (s *Solution) Validate(jobs, machines int) error {
	if s == nil {
		return errors.New("solution is nil")
	}
	if len(s.JobsOrder) != machines {
		return fmt.Errorf("jobs_order has %d sequences, want one per machine (%d)", len(s.JobsOrder), machines)
	}
	for m, perm := range s.JobsOrder {
		if err := validatePermutation(perm, jobs); err != nil {
			return fmt.Errorf("jobs_order[%d]: %w", m, err)
		}
	}
	if len(s.MachinesOrder) != jobs {
		return fmt.Errorf("machines_order has %d sequences, want one per job (%d)", len(s.MachinesOrder), jobs)
	}
	for j, perm := range s.MachinesOrder {
		if err := validatePermutation(perm, machines); err != nil {
			return fmt.Errorf("machines_order[%d]: %w", j, err)
		}
	}
	return nil
}

// validatePermutation checks that perm is a bijection onto [0, n).
func validatePermutation(perm []int, n int) error {
	if len(perm) != n {
		return fmt.Errorf("permutation length must be %d (got %d)", n, len(perm))
	}
	seen := make([]bool, n)
	for i, v := range perm {
		if v < 0 || v >= n {
			return fmt.Errorf("perm[%d]=%d out of range [0,%d)", i, v, n)
		}
		if seen[v] {
			return fmt.Errorf("duplicate index %d in permutation", v)
		}
		seen[v] = true
	}
	return nil
}
