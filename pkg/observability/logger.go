// Package observability provides the structured logging, metrics, and
// correlation-id plumbing shared across extraction, validation, and
// comparison.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category tags a log entry with the subsystem that produced it, so log
// consumers can filter by pipeline stage without parsing message text.
type Category string

const (
	CategoryExtraction  Category = "extraction"
	CategoryValidation  Category = "validation"
	CategoryComparison  Category = "comparison"
	CategoryTransport   Category = "transport"
	CategoryRetry       Category = "retry"
	CategoryDegradation Category = "degradation"
)

// Logger wraps a zap.Logger with TR-181 category helpers, so call sites
// tag every entry with the subsystem it came from instead of
// reconstructing that context from the message string.
type Logger struct {
	base *zap.Logger
}

// NewLogger builds a production-configured Logger writing JSON to
// stderr at the given level.
func NewLogger(level zapcore.Level) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{base: base}, nil
}

// NewNop returns a Logger that discards everything, for tests and
// callers that have not configured logging.
func NewNop() *Logger {
	return &Logger{base: zap.NewNop()}
}

// Sync flushes any buffered log entries. Callers should defer this at
// process shutdown.
func (l *Logger) Sync() error {
	return l.base.Sync()
}

// With returns a Logger that always includes the given fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{base: l.base.With(fields...)}
}

// Info logs at info level under the given category.
func (l *Logger) Info(category Category, msg string, fields ...zap.Field) {
	l.base.Info(msg, append([]zap.Field{zap.String("category", string(category))}, fields...)...)
}

// Warn logs at warn level under the given category.
func (l *Logger) Warn(category Category, msg string, fields ...zap.Field) {
	l.base.Warn(msg, append([]zap.Field{zap.String("category", string(category))}, fields...)...)
}

// Error logs at error level under the given category.
func (l *Logger) Error(category Category, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("category", string(category)))
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.base.Error(msg, fields...)
}
