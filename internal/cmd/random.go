package cmd

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rastion/openshop-problem/internal/observability"
	"github.com/Rastion/openshop-problem/pkg/openshop"
	"github.com/Rastion/openshop-problem/pkg/output"
	"github.com/Rastion/openshop-problem/pkg/runlog"
)

var randomCmd = &cobra.Command{
	Use:   "random <instance>",
	Short: "Generate a random candidate solution",
	Long: `Generate a uniformly random solution for an instance: one job
permutation per machine and one machine permutation per job. The
solution carries no objective; an external scheduler computes the
makespan.

With --count above 1 the command switches to JSONL solution records, one
per line, and records the run (with its seed) for reproducibility.

Examples:
  openshop random tai4_4/instance0.txt
  openshop random tai4_4/instance0.txt --seed 42
  openshop random tai4_4/instance0.txt -o solution.json
  openshop random tai4_4/instance0.txt --count 100 --seed 42 -o candidates.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runRandom,
}

var (
	randomBaseDir string
	randomSeed    int64
	randomOutput  string
	randomCount   int
)

func init() {
	rootCmd.AddCommand(randomCmd)

	randomCmd.Flags().StringVar(&randomBaseDir, "base-dir", "", "Instance base directory (default: app data dir)")
	randomCmd.Flags().Int64Var(&randomSeed, "seed", 0, "RNG seed (0 = time-based)")
	randomCmd.Flags().StringVarP(&randomOutput, "output", "o", "", "Write solution to file instead of stdout")
	randomCmd.Flags().IntVarP(&randomCount, "count", "n", 1, "Number of solutions (above 1 emits JSONL records)")
}

func runRandom(cmd *cobra.Command, args []string) error {
	path := args[0]

	loader := openshop.NewLoader(openshop.LoaderConfig{BaseDir: randomBaseDir})
	inst, err := loader.Load(path)
	if err != nil {
		observability.CLILogger.Error("Failed to load instance",
			zap.String("path", path),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid instance", err)
	}

	seed := randomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	if randomCount > 1 {
		return runRandomBatch(cmd, path, inst, rng, seed)
	}

	sol := inst.RandomSolution(rng)

	observability.CLILogger.Debug("Generated random solution",
		zap.String("instance", path),
		zap.Int64("seed", seed),
		zap.Int("jobs", inst.Jobs()),
		zap.Int("machines", inst.Machines()))

	data, err := json.MarshalIndent(sol, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode solution: %w", err)
	}
	data = append(data, '\n')

	if randomOutput == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(randomOutput, data, 0o644); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write solution", err)
	}

	observability.CLILogger.Info("Wrote solution",
		zap.String("path", randomOutput),
		zap.Int64("seed", seed))
	return nil
}

// runRandomBatch emits count solutions as JSONL records and records the
// run's seed so the stream can be regenerated.
func runRandomBatch(cmd *cobra.Command, path string, inst *openshop.Instance, rng *rand.Rand, seed int64) error {
	runs := runStore()
	runRec, runErr := runs.Begin("random", "", "file")
	if runErr != nil {
		observability.CLILogger.Warn("Failed to record run start", zap.Error(runErr))
	}

	runID := uuid.New().String()
	if runRec != nil {
		runID = runRec.RunID
		runRec.Seed = &seed
		runRec.OutputPath = randomOutput
	}

	writer, cleanup, err := createWriter(randomOutput, runID, "file")
	if err != nil {
		observability.CLILogger.Error("Failed to create writer", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to create output", err)
	}
	defer cleanup()

	ctx := cmd.Context()
	var written int64
	for i := 0; i < randomCount; i++ {
		sol := inst.RandomSolution(rng)
		rec := output.SolutionRecord{
			Key:           path,
			Seed:          &seed,
			JobsOrder:     sol.JobsOrder,
			MachinesOrder: sol.MachinesOrder,
		}
		if err := writer.WriteSolution(ctx, &rec); err != nil {
			if runRec != nil {
				runRec.Counts.Solutions = written
				_ = runs.Finish(runRec, runlog.RunStateFailed, err)
			}
			return exitError(foundry.ExitFileWriteError, "Failed to write solution record", err)
		}
		written++
	}

	if runRec != nil {
		runRec.Counts.Solutions = written
		if finishErr := runs.Finish(runRec, runlog.RunStateSuccess, nil); finishErr != nil {
			observability.CLILogger.Warn("Failed to record run end", zap.Error(finishErr))
		}
	}

	observability.CLILogger.Info("Generated solutions",
		zap.String("run_id", runID),
		zap.String("instance", path),
		zap.Int64("seed", seed),
		zap.Int64("count", written))
	return nil
}
