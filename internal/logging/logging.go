// Package logging constructs the module's zap logger. The teacher's go.mod
// carries zap as a direct dependency but never actually imports it
// (internal/cache and the cmd tree log through fmt.Fprintf to stderr
// instead); SPEC_FULL.md's ambient-stack expansion wires it for real, and
// every stage holds its *zap.SugaredLogger explicitly rather than reaching
// for a package-level singleton, so tests can inject an observer core.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a --log_level flag value to a zapcore.Level.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToUpper(s) {
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "WARN", "WARNING":
		return zapcore.WarnLevel, nil
	case "INFO":
		return zapcore.InfoLevel, nil
	case "DEBUG":
		return zapcore.DebugLevel, nil
	default:
		return 0, fmt.Errorf("logging: unknown log level %q (want ERROR, WARN, INFO, or DEBUG)", s)
	}
}

// New builds a *zap.SugaredLogger writing human-readable console output at
// level and above.
func New(level zapcore.Level) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = level > zapcore.ErrorLevel

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger.Sugar(), nil
}
