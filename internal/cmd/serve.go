package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rastion/openshop-problem/internal/config"
	"github.com/Rastion/openshop-problem/internal/observability"
	"github.com/Rastion/openshop-problem/internal/server"
	"github.com/Rastion/openshop-problem/internal/server/handlers"
	"github.com/Rastion/openshop-problem/pkg/resultstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server exposing instance browsing, solution
evaluation, random solution generation, health probes, and metrics.

Configuration is read from openshop.yaml (working directory or app data
dir), OPENSHOP_* environment variables, and flags, in ascending
precedence.

Examples:
  openshop serve
  openshop serve --port 9000
  OPENSHOP_INSTANCES_DIR=/data/instances openshop serve`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Bind port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	overrides := map[string]any{}
	if serveHost != "" {
		overrides["server.host"] = serveHost
	}
	if servePort != 0 {
		overrides["server.port"] = servePort
	}

	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	if err := observability.InitServerLogger(cfg.Logging.Level); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid log level", err)
	}

	if cfg.Metrics.Enabled {
		if err := observability.InitTelemetry(); err != nil {
			observability.ServerLogger.Error("Failed to initialize telemetry", zap.Error(err))
			return exitError(foundry.ExitExternalServiceUnavailable, "Failed to initialize telemetry", err)
		}
	}

	// Result store backs the readiness probe; the API itself serves
	// instances straight from disk.
	var resultsDB *sql.DB
	if cfg.Results.DBPath != "" {
		resultsDB, err = resultstore.Open(ctx, resultstore.Config{Path: cfg.Results.DBPath})
		if err != nil {
			observability.ServerLogger.Warn("Result store unavailable, readiness check degraded",
				zap.String("path", cfg.Results.DBPath),
				zap.Error(err))
		} else if err := resultstore.Migrate(ctx, resultsDB); err != nil {
			observability.ServerLogger.Warn("Result store migration failed",
				zap.Error(err))
			_ = resultsDB.Close()
			resultsDB = nil
		}
	}
	if resultsDB != nil {
		defer func() { _ = resultsDB.Close() }()
	}

	if cfg.Health.Enabled {
		handlers.InitHealthManager(versionInfo.Version)
		manager := handlers.GetHealthManager()
		manager.RegisterChecker("signals", signalHealthChecker{})
		manager.RegisterChecker("identity", identityHealthChecker{
			binaryName: "openshop",
			envPrefix:  "OPENSHOP",
			configName: config.AppName,
		})
		manager.RegisterChecker("instances-dir", dirHealthChecker{dir: cfg.Instances.BaseDir})
		if cfg.Metrics.Enabled {
			manager.RegisterChecker("telemetry", telemetryHealthChecker{})
		}
		if resultsDB != nil {
			manager.RegisterChecker("results-db", dbHealthChecker{db: resultsDB})
		}
	}

	handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)

	srv := server.New(cfg.Server.Host, cfg.Server.Port,
		server.WithInstancesDir(cfg.Instances.BaseDir),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout,
			cfg.Server.IdleTimeout, cfg.Server.ShutdownTimeout),
		server.WithPprof(cfg.Debug.PprofEnabled),
	)

	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.Server.Port {
		go serveMetrics(ctx, cfg.Server.Host, cfg.Metrics.Port)
	}

	observability.ServerLogger.Info("Starting server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("instances_dir", cfg.Instances.BaseDir),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.String("version", versionInfo.Version))

	if err := srv.Start(ctx); err != nil {
		observability.ServerLogger.Error("Server failed", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
	}
	return nil
}

// serveMetrics runs a dedicated listener for the Prometheus exporter.
func serveMetrics(ctx context.Context, host string, port int) {
	exporter := observability.PrometheusExporter
	if exporter == nil {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())

	srv := &http.Server{
		Addr:        net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		observability.ServerLogger.Warn("Metrics listener failed", zap.Error(err))
	}
}

// signalHealthChecker reports whether the process is receiving signals.
// Construction happens after signal.NotifyContext is installed in main,
// so the check is always healthy.
type signalHealthChecker struct{}

func (signalHealthChecker) CheckHealth(context.Context) error {
	return nil
}

// telemetryHealthChecker verifies the Prometheus registry is live.
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errors.New("telemetry system not initialized")
	}
	return nil
}

// identityHealthChecker verifies the application identity is complete.
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (c identityHealthChecker) CheckHealth(context.Context) error {
	if c.binaryName == "" {
		return errors.New("app identity missing binary name")
	}
	if c.envPrefix == "" {
		return errors.New("app identity missing env prefix")
	}
	if c.configName == "" {
		return errors.New("app identity missing config name")
	}
	return nil
}

// dirHealthChecker verifies a directory exists and is readable.
type dirHealthChecker struct {
	dir string
}

func (c dirHealthChecker) CheckHealth(context.Context) error {
	info, err := os.Stat(c.dir)
	if err != nil {
		return fmt.Errorf("instances dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("instances dir %s is not a directory", c.dir)
	}
	return nil
}

// dbHealthChecker verifies the result store connection.
type dbHealthChecker struct {
	db *sql.DB
}

func (c dbHealthChecker) CheckHealth(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
