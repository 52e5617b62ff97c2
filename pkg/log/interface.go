// Package log provides the structured logging interface used across the
// experiment runner.
//
// The interface is slog-compatible; the default implementation writes JSON
// through log/slog and attaches cockroachdb/errors stack traces to error
// records. Library warnings travel separately through zerolog (see
// errors.SetZerologWarnFunc).
//
// Example usage:
//
//	logger := log.GetLoggerWithName("pipeline").With(
//	    log.EstimatorIDKey, runID,
//	)
//	logger.Info("dataset loaded",
//	    log.SamplesKey, ds.NumInstances(),
//	    log.FeaturesKey, ds.NumAttributes(),
//	)

package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
type Logger interface {
	// Debug logs a debug-level message with optional key-value fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional key-value fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional key-value fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. If the first field is an error,
	// it is recorded under the "error" key together with its stack trace.
	//
	//   logger.Error("run failed", err, log.StepKey, "train")
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
