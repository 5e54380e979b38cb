package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rastion/openshop-problem/internal/observability"
	"github.com/Rastion/openshop-problem/pkg/catalog"
	"github.com/Rastion/openshop-problem/pkg/match"
	"github.com/Rastion/openshop-problem/pkg/output"
	"github.com/Rastion/openshop-problem/pkg/runlog"
	"github.com/Rastion/openshop-problem/pkg/source"
	filesource "github.com/Rastion/openshop-problem/pkg/source/file"
	s3source "github.com/Rastion/openshop-problem/pkg/source/s3"
	"github.com/Rastion/openshop-problem/pkg/suite"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan an instance collection from a suite manifest",
	Long: `Scan a benchmark collection as defined in a YAML or JSON suite
manifest. Matched instances are emitted as JSONL records, optionally
enriched with job/machine counts peeked from headers.

With --fingerprint the scan is replaced by a full listing that prints a
canonical sha256 identity for the matched instance set; two unchanged
collections always produce the same fingerprint.

Examples:
  openshop scan --suite suite.yaml
  openshop scan --suite suite.yaml --output catalog.jsonl
  openshop scan --suite suite.yaml --quiet
  openshop scan --suite suite.yaml --dry-run
  openshop scan --suite suite.yaml --fingerprint`,
	RunE: runScan,
}

var (
	scanSuitePath   string
	scanOutput      string
	scanQuiet       bool
	scanDryRun      bool
	scanFingerprint bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanSuitePath, "suite", "s", "", "Path to suite manifest (required)")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Override output destination")
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "Suppress progress records")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "Validate manifest and show plan without executing")
	scanCmd.Flags().BoolVar(&scanFingerprint, "fingerprint", false, "Print the matched instance set's fingerprint instead of scanning")

	_ = scanCmd.MarkFlagRequired("suite")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	m, err := suite.Load(scanSuitePath)
	if err != nil {
		observability.CLILogger.Error("Failed to load suite manifest",
			zap.String("path", scanSuitePath),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid suite manifest", err)
	}

	observability.CLILogger.Debug("Loaded suite manifest",
		zap.String("path", scanSuitePath),
		zap.String("source", m.Source.Type),
		zap.Strings("includes", m.Match.Includes))

	if scanOutput != "" {
		m.Output.Destination = scanOutput
	}
	if scanQuiet {
		enabled := false
		m.Output.Progress = &enabled
	}

	if scanDryRun {
		return showScanPlan(m)
	}
	if scanFingerprint {
		return printFingerprint(ctx, m)
	}

	return executeScan(ctx, m, scanSuitePath)
}

// printFingerprint lists the matched instance set and prints its
// canonical identity hash.
func printFingerprint(ctx context.Context, m *suite.Manifest) error {
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

	prefixes := matcher.Prefixes()
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}

	var matched []source.ObjectSummary
	for _, prefix := range prefixes {
		objects, err := catalog.ListAll(ctx, src, prefix)
		if err != nil {
			observability.CLILogger.Error("Listing failed",
				zap.String("prefix", prefix),
				zap.Error(err))
			return exitError(foundry.ExitExternalServiceUnavailable, "Listing failed", err)
		}
		for _, obj := range objects {
			if matcher.Match(obj.Key) {
				matched = append(matched, obj)
			}
		}
	}

	fp, err := catalog.FingerprintSummaries(matched)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Fingerprint failed", err)
	}

	fmt.Printf("%s  (%d instance(s))\n", fp, len(matched))
	return nil
}

// showScanPlan displays what would be scanned without executing.
func showScanPlan(m *suite.Manifest) error {
	fmt.Println("=== Scan Plan (dry-run) ===")
	fmt.Println()
	fmt.Printf("Source:      %s\n", m.Source.Type)
	if m.Source.Type == "s3" {
		fmt.Printf("Bucket:      %s\n", m.Source.Bucket)
		if m.Source.Region != "" {
			fmt.Printf("Region:      %s\n", m.Source.Region)
		}
		if m.Source.Endpoint != "" {
			fmt.Printf("Endpoint:    %s\n", m.Source.Endpoint)
		}
	} else {
		fmt.Printf("Base dir:    %s\n", m.Source.BaseDir)
	}
	fmt.Println()
	fmt.Println("Patterns:")
	fmt.Println("  Include:")
	for _, p := range m.Match.Includes {
		fmt.Printf("    - %s\n", p)
	}
	if len(m.Match.Excludes) > 0 {
		fmt.Println("  Exclude:")
		for _, p := range m.Match.Excludes {
			fmt.Printf("    - %s\n", p)
		}
	}
	fmt.Println()

	if m.Match.Filters != nil {
		fmt.Println("Filters:")
		if m.Match.Filters.Jobs != nil {
			fmt.Printf("  Jobs:      min=%d max=%d\n", m.Match.Filters.Jobs.Min, m.Match.Filters.Jobs.Max)
		}
		if m.Match.Filters.Machines != nil {
			fmt.Printf("  Machines:  min=%d max=%d\n", m.Match.Filters.Machines.Min, m.Match.Filters.Machines.Max)
		}
		if m.Match.Filters.KeyRegex != "" {
			fmt.Printf("  Key Regex: %s\n", m.Match.Filters.KeyRegex)
		}
		fmt.Println()
	}

	fmt.Printf("Concurrency:  %d\n", m.Scan.Concurrency)
	if m.Scan.RateLimit > 0 {
		fmt.Printf("Rate Limit:   %.1f req/s\n", m.Scan.RateLimit)
	}
	fmt.Printf("Peek headers: %v\n", m.Scan.PeekHeaders)
	fmt.Printf("Output:       %s\n", m.Output.Destination)
	fmt.Printf("Progress:     %v\n", m.Output.ProgressEnabled())
	fmt.Println()
	fmt.Println("Manifest validated successfully. Remove --dry-run to execute.")
	return nil
}

// executeScan runs the actual catalog scan.
func executeScan(ctx context.Context, m *suite.Manifest, manifestPath string) error {
	// Run provenance is best effort: a broken runs dir never blocks the
	// scan itself.
	runs := runStore()
	runRec, runErr := runs.Begin("scan", manifestPath, m.Source.Type)
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

	var filter *match.CompositeFilter
	if m.Match.Filters != nil {
		filter, err = match.NewFilterFromConfig(m.Match.Filters)
		if err != nil {
			observability.CLILogger.Error("Invalid filters", zap.Error(err))
			return exitError(foundry.ExitInvalidArgument, "Invalid filters", err)
		}
	}

	writer, cleanup, err := createWriter(m.Output.Destination, runID, m.Source.Type)
	if err != nil {
		observability.CLILogger.Error("Failed to create writer", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to create output", err)
	}
	defer cleanup()

	if !m.Output.ProgressEnabled() {
		writer = noProgressWriter{writer}
	}

	cfg := catalog.DefaultConfig()
	cfg.Concurrency = m.Scan.Concurrency
	cfg.RateLimit = m.Scan.RateLimit
	cfg.ProgressEvery = m.Scan.ProgressEvery
	cfg.PeekHeaders = m.Scan.PeekHeaders

	scanner := catalog.New(src, matcher, writer, runID, cfg)
	if filter != nil {
		scanner.WithFilter(filter)
	}

	observability.CLILogger.Info("Starting scan",
		zap.String("run_id", runID),
		zap.String("source", m.Source.Type),
		zap.Int("concurrency", cfg.Concurrency))

	summary, err := scanner.Run(ctx)
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
			observability.CLILogger.Warn("Scan cancelled", zap.String("run_id", runID))
			return exitError(foundry.ExitSignalInt, "Scan cancelled", err)
		}
		observability.CLILogger.Error("Scan failed",
			zap.String("run_id", runID),
			zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Scan failed", err)
	}

	observability.CLILogger.Info("Scan completed",
		zap.String("run_id", runID),
		zap.Int64("keys_listed", summary.KeysListed),
		zap.Int64("keys_matched", summary.KeysMatched),
		zap.Int64("bytes_total", summary.BytesTotal),
		zap.Duration("duration", summary.Duration))

	return nil
}

// runState maps a run outcome onto the terminal run states.
func runState(errCount int64, runErr error) runlog.RunState {
	switch {
	case runErr != nil:
		return runlog.RunStateFailed
	case errCount > 0:
		return runlog.RunStatePartial
	default:
		return runlog.RunStateSuccess
	}
}

// noProgressWriter drops progress records while passing everything else
// through, implementing the manifest's output.progress=false setting.
type noProgressWriter struct {
	output.Writer
}

func (w noProgressWriter) WriteProgress(context.Context, *output.ProgressRecord) error {
	return nil
}

// createSource builds an instance source from suite configuration.
func createSource(ctx context.Context, m *suite.Manifest) (source.Source, error) {
	switch m.Source.Type {
	case "file":
		return filesource.New(filesource.Config{BaseDir: m.Source.BaseDir})
	case "s3":
		return s3source.New(ctx, s3source.Config{
			Bucket:   m.Source.Bucket,
			Region:   m.Source.Region,
			Endpoint: m.Source.Endpoint,
			Profile:  m.Source.Profile,
			// S3-compatible services (moto, MinIO, etc.) require
			// path-style URLs.
			ForcePathStyle: m.Source.Endpoint != "",
		})
	default:
		return nil, fmt.Errorf("unsupported source type: %s", m.Source.Type)
	}
}

// createWriter creates an output writer for the given destination.
// Returns the writer, a cleanup function, and any error.
func createWriter(dest, runID, sourceName string) (output.Writer, func(), error) {
	if dest == "" || dest == "stdout" {
		w := output.NewJSONLWriter(os.Stdout, runID, sourceName)
		return w, func() { _ = w.Close() }, nil
	}

	path := strings.TrimPrefix(dest, "file:")

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}

	w := output.NewJSONLWriter(f, runID, sourceName)
	cleanup := func() {
		_ = w.Close()
		_ = f.Close()
	}
	return w, cleanup, nil
}
