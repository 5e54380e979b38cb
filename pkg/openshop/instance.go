// Package openshop models open shop scheduling instances and candidate
// solutions.
//
// An instance holds the canonical per-job, per-machine processing-time
// matrix parsed from a Taillard file. Instances are immutable after
// construction: the matrix is deep-copied at the boundary and accessors
// never alias internal state, so concurrent readers need no locking.
package openshop

import (
	"errors"
	"fmt"

	"github.com/Rastion/openshop-problem/pkg/taillard"
)

// PenaltyObjective is the sentinel returned by Evaluate for candidates
// that are structurally malformed or carry no externally computed
// objective. Search procedures treat it as "very bad but not a crash".
const PenaltyObjective = 1_000_000_000

// Instance errors.
var (
	// ErrBadDims indicates a non-positive job or machine count.
	ErrBadDims = errors.New("jobs and machines must be positive")

	// ErrBadMatrix indicates a processing-time matrix with the wrong shape
	// or a negative duration.
	ErrBadMatrix = errors.New("invalid processing-time matrix")
)

// Instance is an immutable open shop scheduling instance.
type Instance struct {
	jobs     int
	machines int
	times    [][]int
	maxStart int
}

// NewInstance constructs an instance from a processing-time matrix.
//
// The matrix must have shape [jobs][machines] with non-negative entries;
// it is deep-copied so later mutation by the caller cannot corrupt the
// instance.
func NewInstance(jobs, machines int, times [][]int) (*Instance, error) {
	if jobs <= 0 || machines <= 0 {
		return nil, fmt.Errorf("%w: got %d jobs, %d machines", ErrBadDims, jobs, machines)
	}
	if len(times) != jobs {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrBadMatrix, len(times), jobs)
	}

	copied := make([][]int, jobs)
	maxStart := 0
	for j, row := range times {
		if len(row) != machines {
			return nil, fmt.Errorf("%w: job %d has %d entries, want %d", ErrBadMatrix, j, len(row), machines)
		}
		dst := make([]int, machines)
		for m, d := range row {
			if d < 0 {
				return nil, fmt.Errorf("%w: job %d machine %d has negative duration %d", ErrBadMatrix, j, m, d)
			}
			dst[m] = d
			maxStart += d
		}
		copied[j] = dst
	}

	return &Instance{
		jobs:     jobs,
		machines: machines,
		times:    copied,
		maxStart: maxStart,
	}, nil
}

// FromTaillard builds an instance from parsed Taillard data.
func FromTaillard(d *taillard.Data) (*Instance, error) {
	if d == nil {
		return nil, errors.New("taillard data is nil")
	}
	return NewInstance(d.Jobs, d.Machines, d.ProcessingTimes)
}

// Jobs returns the number of jobs.
func (inst *Instance) Jobs() int {
	return inst.jobs
}

// Machines returns the number of machines.
func (inst *Instance) Machines() int {
	return inst.machines
}

// ProcessingTime returns the duration job j's activity occupies machine m.
func (inst *Instance) ProcessingTime(job, machine int) int {
	return inst.times[job][machine]
}

// ProcessingTimes returns a deep copy of the processing-time matrix.
func (inst *Instance) ProcessingTimes() [][]int {
	out := make([][]int, inst.jobs)
	for j, row := range inst.times {
		out[j] = append([]int(nil), row...)
	}
	return out
}

// MaxStart returns the sum of all processing times, a conservative upper
// bound on any activity's start time.
func (inst *Instance) MaxStart() int {
	return inst.maxStart
}

// Taillard renders the instance back to Taillard data, for encoding.
func (inst *Instance) Taillard() *taillard.Data {
	return &taillard.Data{
		Jobs:            inst.jobs,
		Machines:        inst.machines,
		ProcessingTimes: inst.ProcessingTimes(),
		MaxStart:        inst.maxStart,
	}
}

// Evaluate scores a candidate solution.
//
// The shape check is deliberately permissive: a nil solution, or one
// missing either ordering collection, degrades to PenaltyObjective rather
// than an error, so optimization loops keep running on malformed
// candidates. When the shape is valid, the externally computed Objective
// is returned as-is; Evaluate never derives start or end times from the
// orderings itself - the makespan computation is a collaborator's job.
func (inst *Instance) Evaluate(sol *Solution) int {
	if sol == nil || sol.JobsOrder == nil || sol.MachinesOrder == nil {
		return PenaltyObjective
	}
	if sol.Objective == nil {
		return PenaltyObjective
	}
	return *sol.Objective
}
