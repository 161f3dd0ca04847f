package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEntry records one MCP tool invocation.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	RunID      string            `json:"run_id,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends audit entries to <dataDir>/audit.jsonl. It is safe for
// concurrent use. A nil AuditLogger is safe to use; all methods are no-ops
// on nil receiver.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens the audit log under dataDir. If the file cannot be
// created a warning is printed to stderr and nil is returned.
func NewAuditLogger(dataDir string) *AuditLogger {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", dataDir, err)
		return nil
	}

	path := filepath.Join(dataDir, "audit.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", path, err)
		return nil
	}
	return &AuditLogger{file: f}
}

// Log appends entry as a single JSON line.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return
	}
	_, _ = a.file.Write(data)
}

// Close closes the log file. Calling it more than once is harmless.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// toolParams renders the set tool arguments as strings. Nil pointers and
// zero values are left out so the log shows what the caller asked for.
func toolParams(params map[string]any) map[string]string {
	result := make(map[string]string, len(params))
	for key, val := range params {
		switch v := val.(type) {
		case nil:
			continue
		case *uint64:
			if v != nil {
				result[key] = fmt.Sprintf("%d", *v)
			}
		case *float64:
			if v != nil {
				result[key] = fmt.Sprintf("%g", *v)
			}
		case string:
			if v != "" {
				result[key] = v
			}
		case int:
			if v != 0 {
				result[key] = fmt.Sprintf("%d", v)
			}
		case float64:
			if v != 0 {
				result[key] = fmt.Sprintf("%g", v)
			}
		default:
			result[key] = fmt.Sprintf("%v", v)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// auditTool logs a finished tool call.
func (s *Server) auditTool(toolName string, start time.Time, err error, runID string, params map[string]string) {
	entry := AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     "success",
		RunID:      runID,
		Params:     params,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
	}
	s.auditLogger.Log(entry)
}
