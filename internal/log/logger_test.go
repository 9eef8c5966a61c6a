package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: ComponentLedger,
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	logger.Info("hello", FieldLedgerSize, 3)

	out := buf.String()
	if !strings.Contains(out, "component=ledger") {
		t.Errorf("missing component in %q", out)
	}
	if !strings.Contains(out, "ledger_size=3") {
		t.Errorf("missing field in %q", out)
	}
}

func TestStructuredLoggerLedgerChange(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: "test", Handler: slog.NewTextHandler(&buf, nil)})
	sl := NewStructuredLogger(logger)

	sl.LogLedgerChange(context.Background(), OpDelete, 2, "pizza", "12.5", "Food", 4)
	sl.LogError(context.Background(), "boom", errors.New("disk full"), ComponentStorage, OpUpdate, NewFields())

	out := buf.String()
	for _, want := range []string{"expense_index=2", "operation=delete", "ledger_size=4", "error=\"disk full\""} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext should never return nil")
	}
	l := Discard()
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("FromContext did not return stored logger")
	}
}

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Handler: slog.NewTextHandler(&buf, nil)})

	logger.WithComponent(ComponentHTTP).Info("hi")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=http") {
		t.Errorf("want exactly one http component in %q", out)
	}
}

func TestFieldsKeepInsertionOrder(t *testing.T) {
	args := NewFields().
		WithOperation(OpUpdate).
		WithExpense(-1, "", "12.50", "Food").
		WithOperation(OpDelete).
		WithError(nil).
		Args()

	want := []any{FieldOperation, OpDelete, FieldAmount, "12.50", FieldCategory, "Food"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %v, want %v", i, args[i], want[i])
		}
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentWorker, Format: "json", Output: &buf, Level: slog.LevelWarn})

	logger.Info("dropped")
	logger.Warn("kept", FieldBackend, "csv")

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "dropped") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"component":"worker"`) || !strings.Contains(out, `"backend":"csv"`) {
		t.Errorf("unexpected json record %q", out)
	}
}
