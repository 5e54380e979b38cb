package cmd

import (
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/schema"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	schemasassets "github.com/Rastion/openshop-problem/internal/assets/schemas"
	"github.com/Rastion/openshop-problem/internal/observability"
	"github.com/Rastion/openshop-problem/pkg/openshop"
)

var lintCmd = &cobra.Command{
	Use:   "lint <solution.json>",
	Short: "Validate a solution document",
	Long: `Validate a solution document against the solution schema, and
optionally against an instance's dimensions.

Schema validation catches structural problems (missing orders, wrong
types). With --instance, the orders are additionally checked to be
permutations of the instance's jobs and machines.

Examples:
  openshop lint solution.json
  openshop lint solution.json --instance tai4_4/instance0.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runLint,
}

var (
	lintInstance string
	lintBaseDir  string
)

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVar(&lintInstance, "instance", "", "Check orders against this instance's dimensions")
	lintCmd.Flags().StringVar(&lintBaseDir, "base-dir", "", "Base directory for relative instance paths")
}

func runLint(cmd *cobra.Command, args []string) error {
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		observability.CLILogger.Error("Failed to read solution",
			zap.String("path", path),
			zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Cannot read solution", err)
	}

	if err := lintSolutionJSON(data); err != nil {
		observability.CLILogger.Error("Solution failed schema validation",
			zap.String("path", path),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid solution document", err)
	}

	sol, err := openshop.DecodeSolution(data)
	if err != nil {
		observability.CLILogger.Error("Failed to decode solution",
			zap.String("path", path),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid solution document", err)
	}

	if lintInstance != "" {
		loader := openshop.NewLoader(openshop.LoaderConfig{BaseDir: lintBaseDir})
		inst, err := loader.Load(lintInstance)
		if err != nil {
			observability.CLILogger.Error("Failed to load instance",
				zap.String("instance", lintInstance),
				zap.Error(err))
			return exitError(foundry.ExitInvalidArgument, "Invalid instance", err)
		}
		if err := sol.Validate(inst.Jobs(), inst.Machines()); err != nil {
			observability.CLILogger.Error("Solution does not fit instance",
				zap.String("instance", lintInstance),
				zap.Int("jobs", inst.Jobs()),
				zap.Int("machines", inst.Machines()),
				zap.Error(err))
			return exitError(foundry.ExitInvalidArgument, "Solution does not fit instance", err)
		}
		fmt.Printf("%s is valid for %s (%d jobs, %d machines)\n", path, lintInstance, inst.Jobs(), inst.Machines())
		return nil
	}

	fmt.Printf("%s is a valid solution document (%d jobs, %d machines)\n",
		path, len(sol.JobsOrder), len(sol.MachinesOrder))
	return nil
}

// lintSolutionJSON validates raw JSON against the embedded solution schema.
func lintSolutionJSON(data []byte) error {
	v, err := schema.NewValidator(schemasassets.SolutionSchema)
	if err != nil {
		return fmt.Errorf("failed to compile solution schema: %w", err)
	}

	diags, err := v.ValidateJSON(data)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	var errs []string
	for _, d := range diags {
		if d.Severity == schema.SeverityError {
			errs = append(errs, fmt.Sprintf("%s: %s", d.Pointer, d.Message))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("solution document has %d schema error(s): %v", len(errs), errs)
}
