package logging

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/probelabs/visor/internal/assert"
)

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

// Fields captures structured context for JSON log entries.
// RequestID corresponds to the JSON-RPC id of the request being served.
type Fields struct {
	RequestID string `json:"request_id,omitempty"`
	Method    string `json:"method,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	EventID   string `json:"event_id,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	Component string `json:"component,omitempty"`
	Error     string `json:"error,omitempty"`
}

type entry struct {
	Timestamp string `json:"ts"`
	Level     string `json:"level"`
	Message   string `json:"msg"`
	Fields
}

var (
	levelOnce sync.Once
	minLevel  = levelInfo
)

func init() {
	// Stdout carries the RPC protocol stream, so all logging goes to stderr.
	log.SetOutput(os.Stderr)
	log.SetFlags(0)
}

// Debug logs a debug-level message with structured fields in JSON format.
// Respects the ANALYZER_LOG_LEVEL environment variable.
func Debug(msg string, fields Fields) {
	logWithLevel("debug", msg, fields)
}

// Info logs an info-level message with structured fields in JSON format.
// Default log level if ANALYZER_LOG_LEVEL is unset.
func Info(msg string, fields Fields) {
	logWithLevel("info", msg, fields)
}

// Warn logs a warning-level message with structured fields in JSON format.
// Use for recoverable per-request faults.
func Warn(msg string, fields Fields) {
	logWithLevel("warn", msg, fields)
}

// Error logs an error-level message with structured fields in JSON format.
// Use for faults that require attention but don't stop the service.
func Error(msg string, fields Fields) {
	logWithLevel("error", msg, fields)
}

func logWithLevel(level string, msg string, fields Fields) {
	if err := assert.Check(msg != "", "log message must not be empty"); err != nil {
		return
	}
	if err := assert.Check(len(msg) <= 2048, "log message too large: %d", len(msg)); err != nil {
		return
	}
	if !shouldLog(level) {
		return
	}

	out := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   msg,
		Fields:    fields,
	}
	payload, err := json.Marshal(out)
	if err != nil {
		log.Printf("{\"level\":\"error\",\"msg\":\"log_marshal_failed\",\"error\":%q}", err.Error())
		return
	}
	log.Print(string(payload))
}

func shouldLog(level string) bool {
	levelOnce.Do(func() {
		envLevel := strings.ToLower(os.Getenv("ANALYZER_LOG_LEVEL"))
		if envLevel == "" {
			envLevel = "info"
		}
		minLevel = levelValue(envLevel)
	})
	return levelValue(level) >= minLevel
}

func levelValue(level string) int {
	switch level {
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}
