package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ContextKey string

// LoggerContextKey holds the request-scoped *Logger.
const LoggerContextKey ContextKey = "logger"

// NewContext returns ctx carrying l.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, l)
}

// FromContext returns the logger stored by NewContext, or one wrapping
// slog.Default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// StructuredLogger writes the fixed-shape records shared across
// components: request lifecycle, ledger audit and failures.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(l *Logger) *StructuredLogger {
	return &StructuredLogger{logger: l}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	f := NewFields().WithHTTPRequest(r).WithClientIP(clientIP)
	sl.logger.WithComponent(ComponentHTTP).InfoContext(ctx, "HTTP request started", f.Args()...)
}

// LogHTTPEnd logs at warn for 4xx and error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, status int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	f := NewFields().
		Set(FieldMethod, r.Method).
		Set(FieldPath, r.URL.Path).
		WithHTTPResponse(status, durationMs).
		WithClientIP(clientIP)
	sl.logger.WithComponent(ComponentHTTP).Log(ctx, level, "HTTP request completed", f.Args()...)
}

// LogLedgerChange is the audit record for one persisted mutation.
func (sl *StructuredLogger) LogLedgerChange(ctx context.Context, op string, index int, desc, amount, category string, ledgerSize int) {
	f := NewFields().
		WithOperation(op).
		WithExpense(index, desc, amount, category).
		Set(FieldLedgerSize, ledgerSize)
	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Ledger updated", f.Args()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	f := fields.WithOperation(operation).WithError(err)
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, f.Args()...)
}
