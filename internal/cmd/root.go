// Package cmd implements the openshop command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Rastion/openshop-problem/internal/observability"
)

// versionInfo holds build metadata injected by main via SetVersionInfo.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records the build metadata baked in at link time.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// AppIdentity names the binary, its env prefix, and its config file.
type AppIdentity struct {
	BinaryName string
	EnvPrefix  string
	ConfigName string
}

var appIdentity *AppIdentity

// GetAppIdentity returns the identity set during Execute, or nil before
// initialization.
func GetAppIdentity() *AppIdentity {
	return appIdentity
}

var (
	rootLogLevel   string
	rootStructured bool
)

var rootCmd = &cobra.Command{
	Use:   "openshop",
	Short: "Open shop scheduling instance toolkit",
	Long: `openshop parses Taillard-format open shop scheduling instances,
generates and evaluates candidate solutions, scans and fetches benchmark
collections, and records evaluation results.

Instances live in a local base directory or S3-compatible storage.
Solutions are JSON documents with per-machine job orders and per-job
machine orders; the makespan itself is computed by an external scheduler
and carried in the solution's objective field.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return observability.InitCLILogger(rootLogLevel, rootStructured)
	},
}

func init() {
	cobra.OnInitialize(setDefaults)

	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&rootStructured, "structured", false, "Emit structured JSON logs")
}

// setDefaults seeds global viper defaults shared by serve and doctor.
func setDefaults() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.profile", "structured")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)

	viper.SetDefault("health.enabled", true)

	viper.SetDefault("workers", 4)

	viper.SetDefault("debug.enabled", false)
	viper.SetDefault("debug.pprof_enabled", false)
}

// Execute runs the root command. The context is cancelled on SIGINT and
// SIGTERM so long-running commands can shut down cleanly. Exit codes
// follow foundry conventions: errors built with exitError carry their
// code in the message.
func Execute(ctx context.Context) {
	appIdentity = &AppIdentity{
		BinaryName: "openshop",
		EnvPrefix:  "OPENSHOP",
		ConfigName: "openshop",
	}

	defer observability.Sync()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		observability.CLILogger.Error("Command failed", zap.Error(err))
		observability.Sync()
		os.Exit(1)
	}
}

// ExitWithCode logs the error and terminates with the given exit code.
func ExitWithCode(logger *zap.Logger, code int, message string, err error) {
	logger.Error(message, zap.Error(err), zap.Int("exit_code", code))
	observability.Sync()
	os.Exit(code)
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return fmt.Errorf("%s: %w (exit code %d)", message, err, code)
}
