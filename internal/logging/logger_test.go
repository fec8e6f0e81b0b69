package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelWarn, &buf)
	l.Info("dropped")
	l.Warn("kept", WithField("phase", "landed"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines=%d want 1: %q", len(lines), buf.String())
	}
	var e LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Level != LevelWarn || e.Message != "kept" || e.Fields["phase"] != "landed" {
		t.Fatalf("entry=%+v", e)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	New(LevelDebug, &buf).With("input").Debug("x")
	if !strings.Contains(buf.String(), `"component":"input"`) {
		t.Fatalf("missing component: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if l, ok := ParseLevel(" debug "); !ok || l != LevelDebug {
		t.Fatalf("ParseLevel=%v,%v", l, ok)
	}
	if _, ok := ParseLevel("trace"); ok {
		t.Fatal("accepted unknown level")
	}
}
