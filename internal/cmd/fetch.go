package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rastion/openshop-problem/internal/observability"
	"github.com/Rastion/openshop-problem/pkg/fetch"
	"github.com/Rastion/openshop-problem/pkg/match"
	"github.com/Rastion/openshop-problem/pkg/runlog"
	"github.com/Rastion/openshop-problem/pkg/suite"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download matched instances to a local directory",
	Long: `Download instances matched by a suite manifest into a local
directory, preserving key paths. Files are written atomically and can
be verified as parseable Taillard data before being kept.

Examples:
  openshop fetch --suite suite.yaml --dest ./instances
  openshop fetch --suite suite.yaml --dest ./instances --verify
  openshop fetch --suite suite.yaml --dest ./instances --on-exists overwrite`,
	RunE: runFetch,
}

var (
	fetchSuitePath   string
	fetchDest        string
	fetchConcurrency int
	fetchOnExists    string
	fetchVerify      bool
	fetchOutput      string
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchSuitePath, "suite", "s", "", "Path to suite manifest (required)")
	fetchCmd.Flags().StringVarP(&fetchDest, "dest", "d", "", "Destination directory (required)")
	fetchCmd.Flags().IntVarP(&fetchConcurrency, "concurrency", "c", 0, "Concurrent downloads (default: 8)")
	fetchCmd.Flags().StringVar(&fetchOnExists, "on-exists", fetch.OnExistsSkip, "Behavior for existing files (skip|overwrite|fail)")
	fetchCmd.Flags().BoolVar(&fetchVerify, "verify", false, "Verify downloads parse as Taillard instances")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "Record destination (default: stdout)")

	_ = fetchCmd.MarkFlagRequired("suite")
	_ = fetchCmd.MarkFlagRequired("dest")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	m, err := suite.Load(fetchSuitePath)
	if err != nil {
		observability.CLILogger.Error("Failed to load suite manifest",
			zap.String("path", fetchSuitePath),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid suite manifest", err)
	}

	runs := runStore()
	runRec, runErr := runs.Begin("fetch", fetchSuitePath, m.Source.Type)
	if runErr != nil {
		observability.CLILogger.Warn("Failed to record run start", zap.Error(runErr))
	}

	runID := uuid.New().String()
	if runRec != nil {
		runID = runRec.RunID
	}

	src, err := createSource(ctx, m)
	if err != nil {
		observability.CLILogger.Error("Failed to create source", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to instance source", err)
	}
	defer func() { _ = src.Close() }()

	matcher, err := match.New(match.Config{
		Includes:      m.Match.Includes,
		Excludes:      m.Match.Excludes,
		IncludeHidden: m.Match.IncludeHidden,
	})
	if err != nil {
		observability.CLILogger.Error("Failed to create matcher", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid match patterns", err)
	}

	writer, cleanup, err := createWriter(fetchOutput, runID, m.Source.Type)
	if err != nil {
		observability.CLILogger.Error("Failed to create writer", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to create output", err)
	}
	defer cleanup()

	cfg := fetch.DefaultConfig()
	cfg.DestDir = fetchDest
	cfg.OnExists = fetchOnExists
	cfg.Verify = fetchVerify
	if fetchConcurrency > 0 {
		cfg.Concurrency = fetchConcurrency
	}

	fetcher, err := fetch.New(src, matcher, writer, cfg)
	if err != nil {
		observability.CLILogger.Error("Invalid fetch configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid fetch configuration", err)
	}

	observability.CLILogger.Info("Starting fetch",
		zap.String("run_id", runID),
		zap.String("dest", fetchDest),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Bool("verify", cfg.Verify))

	summary, err := fetcher.Run(ctx)
	if runRec != nil {
		var errCount int64
		if summary != nil {
			errCount = summary.Errors
			runRec.Counts = runlog.RunCounts{
				KeysSeen:    summary.KeysListed,
				KeysMatched: summary.KeysMatched,
				Errors:      summary.Errors,
			}
		}
		if finishErr := runs.Finish(runRec, runState(errCount, err), err); finishErr != nil {
			observability.CLILogger.Warn("Failed to record run end", zap.Error(finishErr))
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			observability.CLILogger.Warn("Fetch cancelled", zap.String("run_id", runID))
			return exitError(foundry.ExitSignalInt, "Fetch cancelled", err)
		}
		observability.CLILogger.Error("Fetch failed",
			zap.String("run_id", runID),
			zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Fetch failed", err)
	}

	observability.CLILogger.Info("Fetch completed",
		zap.String("run_id", runID),
		zap.Int64("keys_listed", summary.KeysListed),
		zap.Int64("keys_matched", summary.KeysMatched),
		zap.Int64("fetched", summary.Fetched),
		zap.Int64("skipped", summary.Skipped),
		zap.Int64("bytes_fetched", summary.BytesFetched),
		zap.Int64("errors", summary.Errors),
		zap.Duration("duration", summary.Duration))

	return nil
}
