package taillard

import (
	"bytes"
	"io"
)

// Dims holds the job and machine counts read from an instance header.
type Dims struct {
	Jobs     int
	Machines int
}

// PeekDims reads only far enough into r to extract the job and machine
// counts from the dimensions line.
//
// This is used by catalog scans to apply dimension filters without paying
// for a full parse of every candidate file. The reader is consumed up to
// the second non-blank line; callers that need the full instance should
// re-open the source and call Parse.
func PeekDims(r io.Reader) (Dims, error) {
	lines, err := readLeadingLines(r, 2)
	if err != nil {
		return Dims{}, err
	}
	jobs, machines, err := parseDims(lines)
	if err != nil {
		return Dims{}, err
	}
	return Dims{Jobs: jobs, Machines: machines}, nil
}

// PeekDimsBytes extracts the dimensions from an in-memory header fragment.
func PeekDimsBytes(b []byte) (Dims, error) {
	return PeekDims(bytes.NewReader(b))
}

// readLeadingLines collects the first n non-blank trimmed lines from r,
// stopping as soon as it has them.
func readLeadingLines(r io.Reader, n int) ([]string, error) {
	var (
		lines []string
		buf   [512]byte
		cur   []byte
	)

	flush := func() {
		line := trimSpaceBytes(cur)
		cur = cur[:0]
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
	}

	for len(lines) < n {
		m, err := r.Read(buf[:])
		for _, c := range buf[:m] {
			if c == '\n' {
				flush()
				if len(lines) >= n {
					return lines, nil
				}
				continue
			}
			cur = append(cur, c)
		}
		if err != nil {
			if err == io.EOF {
				flush()
				break
			}
			return nil, err
		}
	}
	return lines, nil
}

func trimSpaceBytes(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\v' || c == '\f'
}
