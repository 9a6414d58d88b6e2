// Package logging provides leveled logging and solver tracing for gocosmo.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A StepLogger for structured JSONL solver traces (~/.gocosmo/steps.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for full numeric tracing.
// At this level, per-call solver statistics are included.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Event is one structured solver record: an integration summary, a distance
// table preparation, or a WKB window search. Zero-valued fields are omitted
// from the JSONL output.
type Event struct {
	// Op names the operation: "distance", "perturb", "prepare".
	Op    string  `json:"op"`
	Model string  `json:"model,omitempty"`
	ModeK float64 `json:"mode_k,omitempty"`

	RelTol float64 `json:"reltol,omitempty"`
	Stiff  bool    `json:"stiff,omitempty"`
	ZMax   float64 `json:"z_max,omitempty"`
	Rows   int     `json:"rows,omitempty"`

	Steps    int `json:"steps,omitempty"`
	Rejected int `json:"rejected,omitempty"`
	Evals    int `json:"evals,omitempty"`

	// Time is stamped by Log; callers leave it zero.
	Time string `json:"time"`
}

// StepLogger writes structured solver events to a JSONL file: integration
// summaries, distance table preparations, WKB window searches. It is safe for
// concurrent use. A nil StepLogger is safe to use; all methods are no-ops on
// nil receiver.
type StepLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewStepLogger creates a step logger writing to dir/steps.jsonl.
// At "info" level (the default), returns nil — no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewStepLogger(dir string, level string) *StepLogger {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, "steps.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &StepLogger{file: f}
}

// Log writes a solver event as a single JSONL line, stamping Event.Time.
// Safe to call on nil receiver.
func (sl *StepLogger) Log(ev Event) {
	if sl == nil || sl.file == nil {
		return
	}
	ev.Time = time.Now().UTC().Format(time.RFC3339Nano)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = sl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (sl *StepLogger) Close() {
	if sl == nil || sl.file == nil {
		return
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.file.Close()
	sl.file = nil
}
