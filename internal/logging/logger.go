// Package logging provides leveled logging and event tracing for pedigree.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An EventLogger for structured JSONL event traces (.pedigree/events.jsonl)
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

	"github.com/nvandessel/pedigree/internal/constants"
)

// LevelTrace is a custom slog level below Debug for per-event logging.
// At this level every no-op outcome of the simulator (dead mother, no mate)
// is reported.
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

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// EventLogger writes dispatched simulation events to a JSONL file.
// It is safe for concurrent use. A nil EventLogger is safe to use;
// all methods are no-ops on nil receiver.
type EventLogger struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewEventLogger creates an event logger writing to dir/events.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is truncated and opened for writing
// so each run starts a fresh trace.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewEventLogger(dir string, level string) *EventLogger {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, constants.EventTraceFile)
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &EventLogger{file: f, enc: json.NewEncoder(f)}
}

// Log writes an event record as a single JSONL line.
// A "logged_at" wall-clock field is added automatically. The caller's map is
// not mutated. Safe to call on nil receiver.
func (el *EventLogger) Log(event map[string]any) {
	if el == nil {
		return
	}

	// Copy to avoid mutating caller's map
	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["logged_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	el.mu.Lock()
	defer el.mu.Unlock()

	if el.file == nil {
		return
	}
	_ = el.enc.Encode(entry)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (el *EventLogger) Close() {
	if el == nil {
		return
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	if el.file != nil {
		el.file.Close()
		el.file = nil
	}
}
