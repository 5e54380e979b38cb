// Package observability provides the shared zap loggers and Prometheus
// telemetry used across the CLI and server.
package observability

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Package-level loggers. Both default to no-ops so library consumers and
// tests that never call Init* stay quiet.
var (
	// CLILogger is the logger for command-line output.
	CLILogger = zap.NewNop()

	// ServerLogger is the logger for the HTTP server.
	ServerLogger = zap.NewNop()
)

// InitCLILogger configures the CLI logger.
//
// When structured is false, output is console-encoded for human reading;
// otherwise JSON. CLI logs go to stderr so JSONL records on stdout stay
// machine-parseable.
func InitCLILogger(level string, structured bool) error {
	logger, err := buildLogger(level, structured)
	if err != nil {
		return err
	}
	CLILogger = logger
	return nil
}

// InitServerLogger configures the server logger. Server output is always
// structured JSON.
func InitServerLogger(level string) error {
	logger, err := buildLogger(level, true)
	if err != nil {
		return err
	}
	ServerLogger = logger
	return nil
}

// Sync flushes both loggers. Safe to call on no-op loggers.
func Sync() {
	_ = CLILogger.Sync()
	_ = ServerLogger.Sync()
}

func buildLogger(level string, structured bool) (*zap.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if structured {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), lvl)
	return zap.New(core), nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug", "test":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
