package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rastion/openshop-problem/internal/observability"
	"github.com/Rastion/openshop-problem/pkg/runlog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded scan and fetch runs",
	Long: `List and show run records written by scan and fetch executions.

Examples:
  openshop runs list
  openshop runs show 6f1b2c3d-...`,
}

var runsDir string

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.PersistentFlags().StringVar(&runsDir, "runs-dir", "", "Run record directory (default: app data dir)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}

func runStore() *runlog.Store {
	dir := runsDir
	if dir == "" {
		dir = filepath.Join(gfconfig.GetAppDataDir("openshop"), "runs")
	}
	return runlog.NewStore(dir)
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE:  runRunsList,
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store := runStore()

	runs, err := store.List()
	if err != nil {
		observability.CLILogger.Error("Failed to list runs",
			zap.String("dir", store.RootDir()),
			zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Cannot list runs", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "RUN\tNAME\tSTATE\tSTARTED\tEVALUATIONS\tERRORS"); err != nil {
		return err
	}
	for _, r := range runs {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.RunID, r.Name, r.State,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Counts.Evaluations, r.Counts.Errors); err != nil {
			return err
		}
	}
	return w.Flush()
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	store := runStore()

	rec, err := store.Get(args[0])
	if err != nil {
		observability.CLILogger.Error("Failed to read run record",
			zap.String("run_id", args[0]),
			zap.Error(err))
		return exitError(foundry.ExitFileNotFound, "Run not found", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
