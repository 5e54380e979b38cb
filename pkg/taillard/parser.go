// Package taillard parses Taillard-format open shop benchmark instances.
//
// The Taillard layout lists each job's activity durations in the job's own
// task order, with a separate parallel table assigning a 1-indexed machine
// to each activity. Parsing cross-indexes the two tables into a canonical
// per-job, per-machine processing-time matrix.
package taillard

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Parse errors.
var (
	// ErrShortInput indicates the input has fewer lines than the layout requires.
	ErrShortInput = errors.New("input has fewer lines than the Taillard layout requires")

	// ErrShortLine indicates a line has fewer tokens than expected.
	ErrShortLine = errors.New("line has fewer tokens than expected")

	// ErrBadToken indicates a token could not be parsed as an integer.
	ErrBadToken = errors.New("token is not an integer")

	// ErrBadDims indicates the job or machine count is not positive.
	ErrBadDims = errors.New("job and machine counts must be positive")

	// ErrMachineIndex indicates a job's machine-assignment line is not a
	// permutation of the machine range.
	ErrMachineIndex = errors.New("machine index not found for job")
)

// ParseError wraps parse failures with positional context.
type ParseError struct {
	// Line is the 0-indexed position after blank-line stripping, or -1
	// when the failure is not tied to a single line.
	Line int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line < 0 {
		return "taillard: " + e.Err.Error()
	}
	return fmt.Sprintf("taillard: line %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Data is the canonical result of parsing a Taillard instance file.
type Data struct {
	// Jobs is the number of jobs.
	Jobs int

	// Machines is the number of machines.
	Machines int

	// ProcessingTimes has shape [Jobs][Machines]: ProcessingTimes[j][m] is
	// the duration job j's activity occupies machine m.
	ProcessingTimes [][]int

	// MaxStart is the sum of all processing times, a conservative upper
	// bound on any activity's start time.
	MaxStart int
}

// Parse reads a Taillard-format instance from r.
//
// The source is read exactly once. Blank lines are stripped before any
// positional indexing, so stray blank lines do not shift the layout.
// Layout (0-indexed after blank-stripping):
//
//	line 0:                     ignored header
//	line 1:                     <jobs> <machines> [ignored extra tokens]
//	line 2:                     ignored
//	lines 3 .. 3+jobs-1:        durations per job, task order
//	line 3+jobs:                ignored
//	lines 4+jobs .. 4+2*jobs-1: 1-indexed machine id per activity, task order
//
// Parsing is all-or-nothing: a structurally short input fails with
// ErrShortInput and no partial result is returned.
func Parse(r io.Reader) (*Data, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	jobs, machines, err := parseDims(lines)
	if err != nil {
		return nil, err
	}

	if len(lines) < 4+2*jobs {
		return nil, &ParseError{Line: -1, Err: fmt.Errorf("%w: need %d non-blank lines, got %d", ErrShortInput, 4+2*jobs, len(lines))}
	}

	// Durations in task order.
	taskDurations := make([][]int, jobs)
	for j := 0; j < jobs; j++ {
		line := 3 + j
		row, err := parseIntRow(lines[line], machines, line)
		if err != nil {
			return nil, err
		}
		taskDurations[j] = row
	}

	// 1-indexed machine assignments, converted to 0-indexed.
	machineIndex := make([][]int, jobs)
	for j := 0; j < jobs; j++ {
		line := 4 + jobs + j
		row, err := parseIntRow(lines[line], machines, line)
		if err != nil {
			return nil, err
		}
		for i := range row {
			row[i]--
		}
		machineIndex[j] = row
	}

	matrix, err := reindex(taskDurations, machineIndex, jobs, machines)
	if err != nil {
		return nil, err
	}

	maxStart := 0
	for _, row := range matrix {
		for _, d := range row {
			maxStart += d
		}
	}

	return &Data{
		Jobs:            jobs,
		Machines:        machines,
		ProcessingTimes: matrix,
		MaxStart:        maxStart,
	}, nil
}

// ParseBytes parses a Taillard instance from an in-memory buffer.
func ParseBytes(b []byte) (*Data, error) {
	return Parse(strings.NewReader(string(b)))
}

// ParseFile parses a Taillard instance from a file path.
//
// The file is opened, read once, and closed on all exit paths.
func ParseFile(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open instance file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return data, nil
}

// reindex converts task-order durations into machine-indexed durations.
//
// For each job j and machine m it locates the position p with
// machineIndex[j][p] == m and sets matrix[j][m] = taskDurations[j][p].
// Each job's machine-index row must be a permutation of [0, machines);
// a missing or duplicated index fails with ErrMachineIndex.
func reindex(taskDurations, machineIndex [][]int, jobs, machines int) ([][]int, error) {
	matrix := make([][]int, jobs)
	for j := 0; j < jobs; j++ {
		row := make([]int, machines)
		seen := make([]bool, machines)
		for p, m := range machineIndex[j] {
			if m < 0 || m >= machines {
				return nil, &ParseError{Line: -1, Err: fmt.Errorf("%w: job %d has machine id %d out of range [1,%d]", ErrMachineIndex, j, m+1, machines)}
			}
			if seen[m] {
				return nil, &ParseError{Line: -1, Err: fmt.Errorf("%w: job %d lists machine %d twice", ErrMachineIndex, j, m+1)}
			}
			seen[m] = true
			row[m] = taskDurations[j][p]
		}
		for m, ok := range seen {
			if !ok {
				return nil, &ParseError{Line: -1, Err: fmt.Errorf("%w: job %d is missing machine %d", ErrMachineIndex, j, m+1)}
			}
		}
		matrix[j] = row
	}
	return matrix, nil
}

// parseDims extracts the job and machine counts from line 1.
func parseDims(lines []string) (jobs, machines int, err error) {
	if len(lines) < 2 {
		return 0, 0, &ParseError{Line: -1, Err: fmt.Errorf("%w: missing dimensions line", ErrShortInput)}
	}

	tokens := strings.Fields(lines[1])
	if len(tokens) < 2 {
		return 0, 0, &ParseError{Line: 1, Err: fmt.Errorf("%w: need at least 2 tokens, got %d", ErrShortLine, len(tokens))}
	}

	jobs, err = parseInt(tokens[0], 1)
	if err != nil {
		return 0, 0, err
	}
	machines, err = parseInt(tokens[1], 1)
	if err != nil {
		return 0, 0, err
	}
	if jobs <= 0 || machines <= 0 {
		return 0, 0, &ParseError{Line: 1, Err: fmt.Errorf("%w: got %d jobs, %d machines", ErrBadDims, jobs, machines)}
	}
	return jobs, machines, nil
}

// parseIntRow parses exactly want integers from a line.
// Extra trailing tokens are ignored, matching the header-line convention.
func parseIntRow(line string, want, lineNo int) ([]int, error) {
	tokens := strings.Fields(line)
	if len(tokens) < want {
		return nil, &ParseError{Line: lineNo, Err: fmt.Errorf("%w: need %d tokens, got %d", ErrShortLine, want, len(tokens))}
	}
	row := make([]int, want)
	for i := 0; i < want; i++ {
		v, err := parseInt(tokens[i], lineNo)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

func parseInt(token string, lineNo int) (int, error) {
	v, err := strconv.Atoi(token)
	if err != nil {
		return 0, &ParseError{Line: lineNo, Err: fmt.Errorf("%w: %q", ErrBadToken, token)}
	}
	return v, nil
}

// readLines collects whitespace-trimmed, non-blank lines from r.
func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read instance: %w", err)
	}
	return lines, nil
}
