// Package logging routes the process-wide standard logger to stdout and an
// optional append-only log file.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mwiater/toolflow/internal/textutil"
)

// maxPayloadRunes bounds the payload rendered by LogRequest.
const maxPayloadRunes = 512

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init tees log output to stdout and, when logPath is set, to that file.
func Init(logPath string) error {
	return InitWriter(os.Stdout, logPath)
}

// InitWriter is Init with an explicit console writer. The stdio MCP transport
// uses it to keep protocol frames on stdout clean.
func InitWriter(console io.Writer, logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	if len(writers) == 0 {
		log.SetOutput(io.Discard)
		return nil
	}
	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Close releases the log file, if any, and points the logger back at stderr.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

// LogEvent writes a formatted informational line.
func LogEvent(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Println(msg)
}

// LogRequest records a payload crossing a boundary (transport, provider).
func LogRequest(direction, requestID, toolID string, payload any) {
	msg := buildRequestMessage(direction, requestID, toolID, payload)
	log.Println(msg)
}

// LogFault records an internal fault with its full error chain. These lines are
// the only place diagnostic detail for a failed invocation is kept.
func LogFault(code, requestID, toolID string, err error) {
	if err == nil {
		return
	}
	log.Printf("[FAULT] severity=%s code=%s request=%s tool=%s err=%v",
		faultSeverity(code), code, orUnknown(requestID), orUnknown(toolID), err)
}

func faultSeverity(code string) string {
	switch code {
	case "OutputContractViolation", "StorageFault", "HandlerFault":
		return "high"
	default:
		return "normal"
	}
}

func buildRequestMessage(direction, requestID, toolID string, payload any) string {
	dir := strings.TrimSpace(direction)
	if dir != "" {
		dir = strings.ToUpper(dir)
	}
	parts := []string{fmt.Sprintf("[%s]", dir)}
	parts = append(parts, fmt.Sprintf("request=%s", orUnknown(requestID)))
	if toolID = strings.TrimSpace(toolID); toolID != "" {
		parts = append(parts, fmt.Sprintf("tool=%s", toolID))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", textutil.Truncate(formatPayload(payload), maxPayloadRunes)))
	return strings.Join(parts, " ")
}

func orUnknown(value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return "unknown"
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
