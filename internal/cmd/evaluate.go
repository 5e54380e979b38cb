package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rastion/openshop-problem/internal/observability"
	"github.com/Rastion/openshop-problem/pkg/openshop"
	"github.com/Rastion/openshop-problem/pkg/output"
	"github.com/Rastion/openshop-problem/pkg/runlog"
	"github.com/Rastion/openshop-problem/pkg/stream"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <instance> <solution.json>",
	Short: "Evaluate a solution against an instance",
	Long: `Evaluate a candidate solution: report its externally computed
objective, or the penalty objective when the solution is structurally
malformed or not yet evaluated.

By default the solution document is decoded leniently; missing ordering
collections degrade to the penalty objective. Use --strict to fail on
malformed documents instead.

With --stream the second argument is a JSONL record stream ("-" for
stdin) as produced by 'openshop random --count': every solution record
is evaluated and an evaluation record is appended after it, giving a
stream that 'openshop results import' can ingest directly.

Examples:
  openshop evaluate tai4_4/instance0.txt solution.json
  openshop evaluate tai4_4/instance0.txt solution.json --strict
  openshop evaluate tai4_4/instance0.txt solution.json --json
  openshop evaluate tai4_4/instance0.txt candidates.jsonl --stream -o evaluated.jsonl`,
	Args: cobra.ExactArgs(2),
	RunE: runEvaluate,
}

var (
	evaluateBaseDir string
	evaluateStrict  bool
	evaluateJSON    bool
	evaluateStream  bool
	evaluateOutput  string
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evaluateBaseDir, "base-dir", "", "Instance base directory (default: app data dir)")
	evaluateCmd.Flags().BoolVar(&evaluateStrict, "strict", false, "Fail on malformed solutions instead of penalizing")
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "Output as JSON")
	evaluateCmd.Flags().BoolVar(&evaluateStream, "stream", false, "Treat the solution argument as a JSONL record stream")
	evaluateCmd.Flags().StringVarP(&evaluateOutput, "output", "o", "", "Record destination for --stream (default: stdout)")
}

// evaluationOutput is the JSON output structure for evaluate.
type evaluationOutput struct {
	Instance  string `json:"instance"`
	Solution  string `json:"solution"`
	Objective int    `json:"objective"`
	Penalized bool   `json:"penalized"`
	Reason    string `json:"reason,omitempty"`
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	instancePath, solutionPath := args[0], args[1]

	loader := openshop.NewLoader(openshop.LoaderConfig{BaseDir: evaluateBaseDir})
	inst, err := loader.Load(instancePath)
	if err != nil {
		observability.CLILogger.Error("Failed to load instance",
			zap.String("path", instancePath),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid instance", err)
	}

	if evaluateStream {
		return runEvaluateStream(cmd, instancePath, solutionPath, inst)
	}

	data, err := os.ReadFile(solutionPath)
	if err != nil {
		observability.CLILogger.Error("Failed to read solution",
			zap.String("path", solutionPath),
			zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Cannot read solution file", err)
	}

	sol, err := decodeSolutionDocument(data)
	if err != nil {
		if evaluateStrict {
			return exitError(foundry.ExitInvalidArgument, "Invalid solution document", err)
		}
		observability.CLILogger.Debug("Solution document is malformed, degrading to penalty",
			zap.String("path", solutionPath),
			zap.Error(err))
	}

	objective := inst.Evaluate(sol)
	penalized := objective == openshop.PenaltyObjective && !solutionCarriesPenalty(sol)

	out := evaluationOutput{
		Instance:  instancePath,
		Solution:  solutionPath,
		Objective: objective,
		Penalized: penalized,
	}
	if penalized {
		out.Reason = describePenalty(sol)
	}

	if evaluateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Objective: %d\n", out.Objective)
	if out.Penalized {
		fmt.Printf("Penalized: yes (%s)\n", out.Reason)
	}
	return nil
}

// runEvaluateStream evaluates every solution record in a JSONL stream,
// re-emitting each record followed by its evaluation record.
func runEvaluateStream(cmd *cobra.Command, instancePath, streamPath string, inst *openshop.Instance) error {
	ctx := cmd.Context()

	var in *os.File
	if streamPath == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(streamPath)
		if err != nil {
			observability.CLILogger.Error("Failed to open record stream",
				zap.String("path", streamPath),
				zap.Error(err))
			return exitError(foundry.ExitFileReadError, "Cannot read record stream", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	runs := runStore()
	runRec, runErr := runs.Begin("evaluate", "", "file")
	if runErr != nil {
		observability.CLILogger.Warn("Failed to record run start", zap.Error(runErr))
	}

	runID := uuid.New().String()
	if runRec != nil {
		runID = runRec.RunID
		runRec.OutputPath = evaluateOutput
	}

	writer, cleanup, err := createWriter(evaluateOutput, runID, "file")
	if err != nil {
		observability.CLILogger.Error("Failed to create writer", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to create output", err)
	}
	defer cleanup()

	var evaluated, penalties, skipped int64
	dec := stream.NewDecoder(in)
	for {
		rec, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if runRec != nil {
				runRec.Counts.Evaluations = evaluated
				_ = runs.Finish(runRec, runlog.RunStateFailed, err)
			}
			return exitError(foundry.ExitInvalidArgument, "Malformed record stream", err)
		}

		if rec.Type != output.TypeSolution {
			skipped++
			continue
		}

		var solRec output.SolutionRecord
		if err := stream.DecodeData(rec, &solRec); err != nil {
			if runRec != nil {
				runRec.Counts.Evaluations = evaluated
				_ = runs.Finish(runRec, runlog.RunStateFailed, err)
			}
			return exitError(foundry.ExitInvalidArgument, "Malformed solution record", err)
		}

		sol := &openshop.Solution{
			JobsOrder:     solRec.JobsOrder,
			MachinesOrder: solRec.MachinesOrder,
			Objective:     solRec.Objective,
		}

		objective := inst.Evaluate(sol)
		penalized := objective == openshop.PenaltyObjective && !solutionCarriesPenalty(sol)
		if penalized {
			penalties++
		}

		// Re-emit the solution so downstream imports can attach it to
		// the evaluation that follows.
		if err := writer.WriteSolution(ctx, &solRec); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write record", err)
		}
		evalRec := output.EvaluationRecord{
			Key:       instancePath,
			Objective: objective,
			Penalized: penalized,
		}
		if penalized {
			evalRec.Reason = describePenalty(sol)
		}
		if err := writer.WriteEvaluation(ctx, &evalRec); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write record", err)
		}
		evaluated++
	}

	if runRec != nil {
		runRec.Counts.Evaluations = evaluated
		if finishErr := runs.Finish(runRec, runlog.RunStateSuccess, nil); finishErr != nil {
			observability.CLILogger.Warn("Failed to record run end", zap.Error(finishErr))
		}
	}

	observability.CLILogger.Info("Stream evaluation completed",
		zap.String("run_id", runID),
		zap.String("instance", instancePath),
		zap.Int64("evaluated", evaluated),
		zap.Int64("penalized", penalties),
		zap.Int64("skipped", skipped))
	return nil
}

// decodeSolutionDocument is the lenient counterpart of
// openshop.DecodeSolution: JSON syntax errors still fail, but missing
// ordering collections survive so Evaluate can penalize them.
func decodeSolutionDocument(data []byte) (*openshop.Solution, error) {
	sol, err := openshop.DecodeSolution(data)
	if err == nil {
		return sol, nil
	}

	var lenient openshop.Solution
	if jsonErr := json.Unmarshal(data, &lenient); jsonErr != nil {
		return nil, jsonErr
	}
	return &lenient, err
}

// solutionCarriesPenalty reports whether the solution's external
// objective genuinely equals the penalty constant.
func solutionCarriesPenalty(sol *openshop.Solution) bool {
	return sol != nil && sol.JobsOrder != nil && sol.MachinesOrder != nil &&
		sol.Objective != nil && *sol.Objective == openshop.PenaltyObjective
}

func describePenalty(sol *openshop.Solution) string {
	switch {
	case sol == nil:
		return "solution is missing"
	case sol.JobsOrder == nil:
		return "jobs_order is missing"
	case sol.MachinesOrder == nil:
		return "machines_order is missing"
	case sol.Objective == nil:
		return "objective has not been computed"
	default:
		return ""
	}
}
