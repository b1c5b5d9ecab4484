package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"gide/pkg/utils/contextkey"
	"gide/pkg/utils/logger"

	"go.uber.org/zap"
)

func TestContextIDsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.NewWithWriter(logger.Config{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}
	prev := logger.SetGlobal(l)
	t.Cleanup(func() { logger.SetGlobal(prev) })

	ctx := context.WithValue(context.Background(), contextkey.TraceID, "trace-1")
	ctx = context.WithValue(ctx, contextkey.RunID, "run-1")
	logger.Info(ctx, "run resolved", zap.String("language", "cpp"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line failed: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "run resolved" || entry["trace_id"] != "trace-1" || entry["run_id"] != "run-1" || entry["language"] != "cpp" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["request_id"]; ok {
		t.Fatalf("request_id should be absent: %v", entry)
	}
	if caller, _ := entry["caller"].(string); !strings.Contains(caller, "logger_test.go") {
		t.Fatalf("caller should point at the test: %v", entry["caller"])
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.NewWithWriter(logger.Config{Level: "warn", Format: "console"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}
	prev := logger.SetGlobal(l)
	t.Cleanup(func() { logger.SetGlobal(prev) })

	logger.Info(context.Background(), "hidden")
	logger.Warn(context.Background(), "shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "WARN") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := logger.NewWithWriter(logger.Config{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected invalid level error")
	}
	if _, err := logger.NewWithWriter(logger.Config{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected invalid format error")
	}
	if _, err := logger.NewLogger(logger.Config{OutputPath: logger.OutputDiscard}); err != nil {
		t.Fatalf("discard output failed: %v", err)
	}
}

func TestHelpersAreNoopsWithoutLogger(t *testing.T) {
	prev := logger.SetGlobal(nil)
	t.Cleanup(func() { logger.SetGlobal(prev) })
	logger.Error(context.Background(), "dropped")
	if err := logger.Sync(); err != nil {
		t.Fatalf("Sync without logger failed: %v", err)
	}
}
