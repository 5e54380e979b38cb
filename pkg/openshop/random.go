package openshop

import (
	"math/rand"
)

// RandomSolution generates a uniformly random candidate: one permutation
// of job indices per machine and one permutation of machine indices per
// job. No objective is set - the candidate has not been scheduled.
//
// The generator is explicit so callers control seeding and
// reproducibility; there is no package-global random state. A nil rng
// gets a generator seeded from the global source, for callers that do
// not care about determinism.
func (inst *Instance) RandomSolution(rng *rand.Rand) *Solution {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	jobsOrder := make([][]int, inst.machines)
	for m := range jobsOrder {
		jobsOrder[m] = randomPermutation(rng, inst.jobs)
	}

	machinesOrder := make([][]int, inst.jobs)
	for j := range machinesOrder {
		machinesOrder[j] = randomPermutation(rng, inst.machines)
	}

	return &Solution{
		JobsOrder:     jobsOrder,
		MachinesOrder: machinesOrder,
	}
}

func randomPermutation(rng *rand.Rand, n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	rng.Shuffle(n, func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})
	return perm
}
