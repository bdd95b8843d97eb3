package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// what it printed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestPrintUsageOutput(t *testing.T) {
	output := captureStdout(t, printUsage)

	for _, want := range []string{"rotate", "health", "version"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in usage output", want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"logtrim", "version"}
	defer func() { os.Args = oldArgs }()

	output := captureStdout(t, main)

	if !strings.Contains(output, "logtrim version") {
		t.Errorf("expected version banner, got %q", output)
	}
	if !strings.Contains(output, "commit") {
		t.Errorf("expected commit in version output, got %q", output)
	}
}
