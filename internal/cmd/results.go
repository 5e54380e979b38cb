package cmd

import (
	"database/sql"
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
	"github.com/Rastion/openshop-problem/pkg/resultstore"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Query and import evaluation results",
	Long: `Query the local evaluation result store, or import JSONL record
streams produced by scans and external schedulers.

Examples:
  openshop results import results.jsonl
  openshop results best tai4_4/instance0.txt
  openshop results list tai4_4/instance0.txt --limit 20`,
}

var resultsDBPath string

func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.PersistentFlags().StringVar(&resultsDBPath, "db", "", "Result store path (default: app data dir)")

	resultsCmd.AddCommand(resultsImportCmd)
	resultsCmd.AddCommand(resultsBestCmd)
	resultsCmd.AddCommand(resultsListCmd)
}

// defaultResultsDB returns the default store path under the app data dir.
func defaultResultsDB() string {
	return filepath.Join(gfconfig.GetAppDataDir("openshop"), "results.db")
}

// openResultStore opens and migrates the result store.
func openResultStore(cmd *cobra.Command) (*sql.DB, error) {
	path := resultsDBPath
	if path == "" {
		path = defaultResultsDB()
	}

	db, err := resultstore.Open(cmd.Context(), resultstore.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := resultstore.Migrate(cmd.Context(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var resultsImportCmd = &cobra.Command{
	Use:   "import <records.jsonl>",
	Short: "Import a JSONL record stream into the result store",
	Long: `Import solution and evaluation records from a JSONL stream.
Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runResultsImport,
}

func runResultsImport(cmd *cobra.Command, args []string) error {
	path := args[0]

	var in *os.File
	if path == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			observability.CLILogger.Error("Failed to open record stream",
				zap.String("path", path),
				zap.Error(err))
			return exitError(foundry.ExitFileReadError, "Cannot read record stream", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	db, err := openResultStore(cmd)
	if err != nil {
		observability.CLILogger.Error("Failed to open result store", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Cannot open result store", err)
	}
	defer func() { _ = db.Close() }()

	stats, err := resultstore.ImportStream(cmd.Context(), db, in)
	if err != nil {
		observability.CLILogger.Error("Import failed", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Import failed", err)
	}

	observability.CLILogger.Info("Import completed",
		zap.Int("evaluations", stats.Evaluations),
		zap.Int("skipped", stats.Skipped))
	fmt.Printf("Imported %d evaluation(s), skipped %d record(s)\n", stats.Evaluations, stats.Skipped)
	return nil
}

var resultsBestCmd = &cobra.Command{
	Use:   "best <instance-key>",
	Short: "Show the best feasible evaluation for an instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runResultsBest,
}

var resultsBestJSON bool

func init() {
	resultsBestCmd.Flags().BoolVar(&resultsBestJSON, "json", false, "Output as JSON")
}

func runResultsBest(cmd *cobra.Command, args []string) error {
	key := args[0]

	db, err := openResultStore(cmd)
	if err != nil {
		observability.CLILogger.Error("Failed to open result store", zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Cannot open result store", err)
	}
	defer func() { _ = db.Close() }()

	best, err := resultstore.BestEvaluation(cmd.Context(), db, key)
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Query failed", err)
	}
	if best == nil {
		fmt.Printf("No feasible evaluations recorded for %s\n", key)
		return nil
	}

	if resultsBestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(best)
	}

	fmt.Printf("Instance:   %s\n", best.InstanceKey)
	fmt.Printf("Objective:  %d\n", best.Objective)
	fmt.Printf("Run:        %s\n", best.RunID)
	if best.Seed != nil {
		fmt.Printf("Seed:       %d\n", *best.Seed)
	}
	fmt.Printf("Recorded:   %s\n", best.CreatedAt.Format("2006-01-02 15:04:05"))
	if len(best.Solution) > 0 {
		fmt.Printf("Solution:   %s\n", best.Solution)
	}
	return nil
}

var resultsListCmd = &cobra.Command{
	Use:   "list <instance-key>",
	Short: "List evaluations recorded for an instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runResultsList,
}

var (
	resultsListLimit     int
	resultsListPenalized bool
	resultsListRun       string
)

func init() {
	resultsListCmd.Flags().IntVarP(&resultsListLimit, "limit", "n", resultstore.DefaultListLimit, "Max evaluations to list")
	resultsListCmd.Flags().BoolVar(&resultsListPenalized, "include-penalized", false, "Include penalized evaluations")
	resultsListCmd.Flags().StringVar(&resultsListRun, "run", "", "Filter by run ID")
}

func runResultsList(cmd *cobra.Command, args []string) error {
	key := args[0]

	db, err := openResultStore(cmd)
	if err != nil {
		observability.CLILogger.Error("Failed to open result store", zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Cannot open result store", err)
	}
	defer func() { _ = db.Close() }()

	evals, err := resultstore.ListEvaluations(cmd.Context(), db, resultstore.ListQuery{
		InstanceKey:      key,
		RunID:            resultsListRun,
		IncludePenalized: resultsListPenalized,
		Limit:            resultsListLimit,
	})
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Query failed", err)
	}

	if len(evals) == 0 {
		fmt.Printf("No evaluations recorded for %s\n", key)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "OBJECTIVE\tPENALIZED\tRUN\tRECORDED"); err != nil {
		return err
	}
	for _, e := range evals {
		penalized := "no"
		if e.Penalized {
			penalized = "yes"
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			e.Objective, penalized, e.RunID,
			e.CreatedAt.Format("2006-01-02 15:04:05")); err != nil {
			return err
		}
	}
	return w.Flush()
}
