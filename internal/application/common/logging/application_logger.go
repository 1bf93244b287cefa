// Package logging provides structured JSON application logging with
// correlation-ID propagation through context.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ApplicationLogger defines the interface for structured application logging.
type ApplicationLogger interface {
	Debug(ctx context.Context, message string, fields Fields)
	Info(ctx context.Context, message string, fields Fields)
	Warn(ctx context.Context, message string, fields Fields)
	Error(ctx context.Context, message string, fields Fields)
	ErrorWithError(ctx context.Context, err error, message string, fields Fields)
	LogPerformance(ctx context.Context, operation string, duration time.Duration, fields Fields)
	WithComponent(component string) ApplicationLogger
}

// Fields represents structured logging fields.
type Fields map[string]any

// Config represents logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // json, text
	Output string // stdout, stderr
}

// LogEntry is the wire structure of one log line.
type LogEntry struct {
	Timestamp     string         `json:"timestamp"`
	Level         string         `json:"level"`
	Message       string         `json:"message"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Component     string         `json:"component,omitempty"`
	Operation     string         `json:"operation,omitempty"`
	Duration      string         `json:"duration,omitempty"`
	Error         string         `json:"error,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type contextKey string

// CorrelationIDKey is the context key carrying the request correlation ID.
const CorrelationIDKey contextKey = "correlation_id"

// WithCorrelationID returns a context carrying the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// CorrelationIDFrom extracts the correlation ID from context, or "".
func CorrelationIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// NewCorrelationID generates a fresh correlation ID.
func NewCorrelationID() string {
	return uuid.NewString()
}

var levelPriorities = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
}

type applicationLoggerImpl struct {
	config    Config
	component string
	out       io.Writer
	minLevel  int
	mu        *sync.Mutex
}

// NewApplicationLogger creates a structured logger from configuration.
func NewApplicationLogger(config Config) (ApplicationLogger, error) {
	level := strings.ToUpper(config.Level)
	if level == "" {
		level = "INFO"
	}
	priority, ok := levelPriorities[level]
	if !ok {
		return nil, fmt.Errorf("logging: invalid level %q", config.Level)
	}

	var out io.Writer
	switch config.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		return nil, fmt.Errorf("logging: invalid output %q", config.Output)
	}

	return &applicationLoggerImpl{
		config:   config,
		out:      out,
		minLevel: priority,
		mu:       &sync.Mutex{},
	}, nil
}

// NewTestLogger creates a logger writing to the given writer, for tests.
func NewTestLogger(out io.Writer) ApplicationLogger {
	return &applicationLoggerImpl{
		config:   Config{Level: "DEBUG", Format: "json"},
		out:      out,
		minLevel: 0,
		mu:       &sync.Mutex{},
	}
}

func (l *applicationLoggerImpl) Debug(ctx context.Context, message string, fields Fields) {
	l.log(ctx, "DEBUG", message, "", fields)
}

func (l *applicationLoggerImpl) Info(ctx context.Context, message string, fields Fields) {
	l.log(ctx, "INFO", message, "", fields)
}

func (l *applicationLoggerImpl) Warn(ctx context.Context, message string, fields Fields) {
	l.log(ctx, "WARN", message, "", fields)
}

func (l *applicationLoggerImpl) Error(ctx context.Context, message string, fields Fields) {
	l.log(ctx, "ERROR", message, "", fields)
}

func (l *applicationLoggerImpl) ErrorWithError(ctx context.Context, err error, message string, fields Fields) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	l.log(ctx, "ERROR", message, errMsg, fields)
}

func (l *applicationLoggerImpl) LogPerformance(
	ctx context.Context,
	operation string,
	duration time.Duration,
	fields Fields,
) {
	entry := l.newEntry(ctx, "INFO", "Operation completed", "", fields)
	entry.Operation = operation
	entry.Duration = duration.String()
	l.write(entry)
}

func (l *applicationLoggerImpl) WithComponent(component string) ApplicationLogger {
	clone := *l
	clone.component = component
	return &clone
}

func (l *applicationLoggerImpl) log(ctx context.Context, level, message, errMsg string, fields Fields) {
	if levelPriorities[level] < l.minLevel {
		return
	}
	l.write(l.newEntry(ctx, level, message, errMsg, fields))
}

func (l *applicationLoggerImpl) newEntry(
	ctx context.Context,
	level, message, errMsg string,
	fields Fields,
) LogEntry {
	return LogEntry{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Level:         level,
		Message:       message,
		CorrelationID: CorrelationIDFrom(ctx),
		Component:     l.component,
		Error:         errMsg,
		Metadata:      fields,
	}
}

func (l *applicationLoggerImpl) write(entry LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.config.Format == "text" {
		fmt.Fprintf(l.out, "%s [%s] %s %s %v\n",
			entry.Timestamp, entry.Level, entry.Component, entry.Message, entry.Metadata)
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.out, `{"level":"ERROR","message":"failed to marshal log entry: %s"}`+"\n", err)
		return
	}
	l.out.Write(data)
	l.out.Write([]byte("\n"))
}
