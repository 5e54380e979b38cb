package taillard

import (
	"fmt"
	"io"
	"strings"
)

// Write renders d back to the canonical Taillard layout.
//
// Activities are emitted in machine-index order, so the machine-assignment
// table is simply 1..Machines for every job. Re-parsing the output yields a
// Data equal to d, which fetch verification and tests rely on.
func Write(w io.Writer, d *Data) error {
	if d == nil {
		return fmt.Errorf("taillard: nil data")
	}
	if d.Jobs <= 0 || d.Machines <= 0 {
		return fmt.Errorf("taillard: %w: got %d jobs, %d machines", ErrBadDims, d.Jobs, d.Machines)
	}
	if len(d.ProcessingTimes) != d.Jobs {
		return fmt.Errorf("taillard: matrix has %d rows, want %d", len(d.ProcessingTimes), d.Jobs)
	}

	var b strings.Builder
	b.WriteString("number of jobs, number of machines\n")
	fmt.Fprintf(&b, "%d %d\n", d.Jobs, d.Machines)

	b.WriteString("processing times :\n")
	for j, row := range d.ProcessingTimes {
		if len(row) != d.Machines {
			return fmt.Errorf("taillard: job %d has %d durations, want %d", j, len(row), d.Machines)
		}
		writeIntRow(&b, row)
	}

	b.WriteString("machines :\n")
	for j := 0; j < d.Jobs; j++ {
		for m := 1; m <= d.Machines; m++ {
			if m > 1 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d", m)
		}
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeIntRow(b *strings.Builder, row []int) {
	for i, v := range row {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(b, "%d", v)
	}
	b.WriteByte('\n')
}
