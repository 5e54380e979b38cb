package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rastion/openshop-problem/internal/observability"
	"github.com/Rastion/openshop-problem/pkg/openshop"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <instance>",
	Short: "Show instance dimensions and processing times",
	Long: `Inspect a Taillard-format instance file.

Relative paths are resolved against the instance base directory;
absolute paths are used as-is.

Examples:
  openshop inspect tai4_4/instance0.txt
  openshop inspect /data/instances/tai20_20.txt --matrix
  openshop inspect tai4_4/instance0.txt --json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var (
	inspectBaseDir string
	inspectMatrix  bool
	inspectJSON    bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectBaseDir, "base-dir", "", "Instance base directory (default: app data dir)")
	inspectCmd.Flags().BoolVar(&inspectMatrix, "matrix", false, "Print the full processing-time matrix")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output as JSON")
}

// instanceOutput is the JSON output structure for inspect.
type instanceOutput struct {
	Path            string  `json:"path"`
	Jobs            int     `json:"jobs"`
	Machines        int     `json:"machines"`
	MaxStart        int     `json:"max_start"`
	ProcessingTimes [][]int `json:"processing_times,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]

	loader := openshop.NewLoader(openshop.LoaderConfig{BaseDir: inspectBaseDir})
	inst, err := loader.Load(path)
	if err != nil {
		observability.CLILogger.Error("Failed to load instance",
			zap.String("path", path),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid instance", err)
	}

	out := instanceOutput{
		Path:     path,
		Jobs:     inst.Jobs(),
		Machines: inst.Machines(),
		MaxStart: inst.MaxStart(),
	}
	if inspectMatrix || inspectJSON {
		out.ProcessingTimes = inst.ProcessingTimes()
	}

	if inspectJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	resolved, _ := loader.Resolve(path)
	fmt.Printf("Instance:  %s\n", resolved)
	fmt.Printf("Jobs:      %d\n", out.Jobs)
	fmt.Printf("Machines:  %d\n", out.Machines)
	fmt.Printf("Max start: %d\n", out.MaxStart)

	if inspectMatrix {
		fmt.Println()
		return printMatrix(out.ProcessingTimes)
	}
	return nil
}

// printMatrix renders the processing-time matrix as a table with machine
// columns and job rows.
func printMatrix(times [][]int) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)

	if _, err := fmt.Fprint(w, "JOB"); err != nil {
		return err
	}
	if len(times) > 0 {
		for m := range times[0] {
			if _, err := fmt.Fprintf(w, "\tM%d", m); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	for j, row := range times {
		if _, err := fmt.Fprintf(w, "%d", j); err != nil {
			return err
		}
		for _, d := range row {
			if _, err := fmt.Fprintf(w, "\t%d", d); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	return w.Flush()
}
