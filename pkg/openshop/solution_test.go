package openshop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSolution(t *testing.T) {
	data := []byte(`{"jobs_order": [[0,1],[1,0]], "machines_order": [[1,0],[0,1]], "objective": 42}`)

	sol, err := DecodeSolution(data)
	require.NoError(t, err)

	assert.Equal(t, [][]int{{0, 1}, {1, 0}}, sol.JobsOrder)
	assert.Equal(t, [][]int{{1, 0}, {0, 1}}, sol.MachinesOrder)
	require.NotNil(t, sol.Objective)
	assert.Equal(t, 42, *sol.Objective)
}

func TestDecodeSolution_Strict(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{
			name:    "missing machines_order",
			data:    `{"jobs_order": [[0,1],[1,0]]}`,
			wantErr: ErrMissingMachinesOrder,
		},
		{
			name:    "missing jobs_order",
			data:    `{"machines_order": [[0,1],[1,0]]}`,
			wantErr: ErrMissingJobsOrder,
		},
		{
			name:    "empty object",
			data:    `{}`,
			wantErr: ErrMissingJobsOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSolution([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeSolution_InvalidJSON(t *testing.T) {
	_, err := DecodeSolution([]byte(`not json`))
	assert.Error(t, err)
}

func TestSolution_Validate(t *testing.T) {
	valid := &Solution{
		JobsOrder:     [][]int{{0, 1}, {1, 0}},
		MachinesOrder: [][]int{{1, 0}, {0, 1}},
	}
	assert.NoError(t, valid.Validate(2, 2))

	tests := []struct {
		name string
		sol  *Solution
	}{
		{
			name: "wrong jobs_order count",
			sol: &Solution{
				JobsOrder:     [][]int{{0, 1}},
				MachinesOrder: [][]int{{1, 0}, {0, 1}},
			},
		},
		{
			name: "out of range index",
			sol: &Solution{
				JobsOrder:     [][]int{{0, 2}, {1, 0}},
				MachinesOrder: [][]int{{1, 0}, {0, 1}},
			},
		},
		{
			name: "duplicate index",
			sol: &Solution{
				JobsOrder:     [][]int{{0, 0}, {1, 0}},
				MachinesOrder: [][]int{{1, 0}, {0, 1}},
			},
		},
		{
			name: "short permutation",
			sol: &Solution{
				JobsOrder:     [][]int{{0}, {1, 0}},
				MachinesOrder: [][]int{{1, 0}, {0, 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.sol.Validate(2, 2))
		})
	}
}

func TestSolution_WithObjective(t *testing.T) {
	sol := &Solution{
		JobsOrder:     [][]int{{0, 1}, {1, 0}},
		MachinesOrder: [][]int{{1, 0}, {0, 1}},
	}

	scored := sol.WithObjective(17)
	require.NotNil(t, scored.Objective)
	assert.Equal(t, 17, *scored.Objective)

	// Original is untouched.
	assert.Nil(t, sol.Objective)
}
