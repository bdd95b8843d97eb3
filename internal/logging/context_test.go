package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWithRunIDCtx(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunIDCtx(ctx, "run-123")

	got := RunIDFromCtx(ctx)
	if got != "run-123" {
		t.Errorf("RunIDFromCtx() = %q, want %q", got, "run-123")
	}
}

func TestRunIDFromCtxEmpty(t *testing.T) {
	ctx := context.Background()
	got := RunIDFromCtx(ctx)
	if got != "" {
		t.Errorf("RunIDFromCtx() = %q, want empty string", got)
	}
}

func TestWithLoggerCtx(t *testing.T) {
	l := DefaultLogger()
	ctx := context.Background()
	ctx = WithLoggerCtx(ctx, l)

	got := LoggerFromCtx(ctx)
	if got != l {
		t.Error("LoggerFromCtx should return the same logger")
	}
}

func TestLoggerFromCtxNil(t *testing.T) {
	ctx := context.Background()
	got := LoggerFromCtx(ctx)
	if got != nil {
		t.Error("LoggerFromCtx should return nil when no logger in context")
	}
}

func TestFromCtxWithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: &buf,
	})
	l = l.WithRunID("preset-run")

	ctx := WithLoggerCtx(context.Background(), l)
	got := FromCtx(ctx)

	if got != l {
		t.Error("FromCtx should return logger from context")
	}
}

func TestFromCtxWithRunID(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunIDCtx(ctx, "ctx-run")

	l := FromCtx(ctx)

	var buf bytes.Buffer
	l.mu.Lock()
	l.out = &buf
	l.mu.Unlock()

	l.Info("test")

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if entry.RunID != "ctx-run" {
		t.Errorf("runId = %q, want %q", entry.RunID, "ctx-run")
	}
}

func TestFromCtxWithNoContext(t *testing.T) {
	ctx := context.Background()
	l := FromCtx(ctx)

	if l == nil {
		t.Error("FromCtx should return a default logger")
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: &buf,
	})

	ctx := context.Background()
	ctx = WithRunIDCtx(ctx, "ctx-run")

	l := ContextLogger(ctx, base)
	l.Info("test")

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if entry.RunID != "ctx-run" {
		t.Errorf("runId = %q, want %q", entry.RunID, "ctx-run")
	}
}

func TestContextLoggerNilBase(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunIDCtx(ctx, "run-123")

	l := ContextLogger(ctx, nil)
	if l == nil {
		t.Error("ContextLogger should return a logger even with nil base")
	}
}

func TestPropagateRunID(t *testing.T) {
	l := DefaultLogger().WithRunID("logger-run")
	ctx := context.Background()
	ctx = PropagateRunID(ctx, l)

	if got := RunIDFromCtx(ctx); got != "logger-run" {
		t.Errorf("RunIDFromCtx = %q, want %q", got, "logger-run")
	}
}

func TestPropagateRunIDNilLogger(t *testing.T) {
	ctx := context.Background()
	newCtx := PropagateRunID(ctx, nil)

	if newCtx != ctx {
		t.Error("PropagateRunID with nil logger should return same context")
	}
}

func TestContextPropagationEndToEnd(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: &buf,
	})

	// Simulate the rotate command stamping a run, then the engine
	// pulling the logger back out of the context.
	runID := "run-abc-123"

	ctx := context.Background()
	ctx = WithRunIDCtx(ctx, runID)
	ctx = WithLoggerCtx(ctx, ContextLogger(ctx, base))

	l := FromCtx(ctx)
	l.Info("processing group")

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if entry.RunID != runID {
		t.Errorf("runId = %q, want %q", entry.RunID, runID)
	}
}
