// Package logging builds the zap loggers used across graphmap and defines the
// standard structured field names.
package logging

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging. Use these constants instead of
// raw strings so log lines stay consistent across packages.
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldType      = "entity_type"
	FieldID        = "entity_id"
	FieldAttribute = "attribute"
	FieldQuery     = "query"
	FieldCount     = "count"
	FieldStore     = "store"
	FieldEndpoint  = "endpoint"
	FieldIndex     = "index"
	FieldState     = "state"
	FieldError     = "error"
)

// Config controls logger construction
type Config struct {
	Level string // debug, info, warn, error
	JSON  bool
}

// New builds a logger. JSON output uses the production encoder; otherwise a
// console encoder writes to stderr.
func New(cfg Config) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	if cfg.JSON {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		return config.Build()
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(os.Stderr),
		level,
	)
	return zap.New(core), nil
}

// ParseLevel converts a level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, errors.Newf("unknown log level %q", s)
	}
}

// OrNop returns logger, or a no-op logger when it is nil
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
