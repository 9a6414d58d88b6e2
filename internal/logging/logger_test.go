package logging

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"info", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"Trace", LevelTrace},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var sb strings.Builder
	log := NewLogger("info", &sb)

	log.Debug("hidden")
	log.Info("shown")

	out := sb.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message leaked at info level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("info message missing")
	}
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var sb strings.Builder
	log := NewLogger("trace", &sb)

	log.Log(nil, LevelTrace, "step detail", "h", 0.01)

	out := sb.String()
	if !strings.Contains(out, "TRACE") {
		t.Errorf("trace record not labeled TRACE: %q", out)
	}
	if !strings.Contains(out, "step detail") {
		t.Errorf("trace message missing: %q", out)
	}
}

func TestNewStepLogger_InfoLevel(t *testing.T) {
	sl := NewStepLogger(t.TempDir(), "info")
	if sl != nil {
		t.Error("step logger should be nil at info level")
	}
	// Nil receiver methods must be safe.
	sl.Log(Event{Op: "distance"})
	sl.Close()
}

func TestStepLogger_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	sl := NewStepLogger(dir, "debug")
	if sl == nil {
		t.Fatal("step logger nil at debug level")
	}

	sl.Log(Event{Op: "perturb", ModeK: 1.0, Stiff: true, Steps: 42})
	sl.Log(Event{Op: "prepare"})
	sl.Close()

	f, err := os.Open(filepath.Join(dir, "steps.jsonl"))
	if err != nil {
		t.Fatalf("opening steps.jsonl: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %d not valid JSON: %v", len(lines)+1, err)
		}
		lines = append(lines, m)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scanning: %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["op"] != "perturb" || lines[0]["steps"] != float64(42) || lines[0]["stiff"] != true {
		t.Errorf("first line = %v", lines[0])
	}
	if ts, ok := lines[0]["time"].(string); !ok || ts == "" {
		t.Error("time field not stamped")
	}
	// Zero-valued fields are omitted: the prepare record carries no counters.
	if _, ok := lines[1]["steps"]; ok {
		t.Errorf("second line carries spurious counters: %v", lines[1])
	}
}

func TestStepLogger_CloseIdempotent(t *testing.T) {
	sl := NewStepLogger(t.TempDir(), "trace")
	if sl == nil {
		t.Fatal("step logger nil at trace level")
	}
	sl.Close()
	sl.Close()
	sl.Log(Event{Op: "after close"}) // must not panic
}
