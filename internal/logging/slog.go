package logging

import (
	"fmt"
	"io"
	"log/slog"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeySource    = "source"
	KeyMode      = "mode"
	KeyRunID     = "run_id"
	KeyTraceID   = "trace_id"
	KeyInput     = "input"
	KeyField     = "field"
	KeyToken     = "token"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to keep logging free of OpenTelemetry imports.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// New returns a text logger writing to w, at debug level when debug is set
// and info level otherwise.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// Source returns a slog attribute for the input format.
func Source(source string) slog.Attr {
	return slog.String(KeySource, source)
}

// Mode returns a slog attribute for the grammar mode.
func Mode(mode string) slog.Attr {
	return slog.String(KeyMode, mode)
}

// RunID returns a slog attribute for the run identifier.
func RunID(id string) slog.Attr {
	return slog.String(KeyRunID, id)
}

// TraceID returns a slog attribute for the trace identifier of a span.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// Input returns a slog attribute for the input path.
func Input(path string) slog.Attr {
	return slog.String(KeyInput, path)
}

// Field returns a slog attribute for a captured field name.
func Field(name string) slog.Attr {
	return slog.String(KeyField, name)
}

// Token returns a slog attribute carrying a sanitized token.
func Token(token string) slog.Attr {
	return slog.String(KeyToken, SanitizeToken(token))
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken returns a masked version of a token for logging.
// Only the length is kept; identifiers recovered from evidence stay out of logs.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
