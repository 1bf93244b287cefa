// Package slogger exposes package-level structured logging helpers backed by
// a lazily initialized singleton ApplicationLogger.
package slogger

import (
	"context"
	"sync"

	"stocknotifier/internal/application/common/logging"
)

// Fields is an alias for logging.Fields for convenience.
type Fields = logging.Fields

var (
	defaultLogger logging.ApplicationLogger //nolint:gochecknoglobals // singleton logging infrastructure
	defaultOnce   sync.Once                 //nolint:gochecknoglobals // thread-safe singleton initialization
	mu            sync.RWMutex              //nolint:gochecknoglobals // guards logger replacement in tests
)

func getLogger() logging.ApplicationLogger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	defaultOnce.Do(func() {
		logger, err := logging.NewApplicationLogger(logging.Config{
			Level:  "INFO",
			Format: "json",
			Output: "stdout",
		})
		if err != nil {
			panic("failed to initialize logger: " + err.Error())
		}
		mu.Lock()
		defaultLogger = logger
		mu.Unlock()
	})

	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetGlobalLogger replaces the global logger (useful for testing).
func SetGlobalLogger(logger logging.ApplicationLogger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

// Debug logs a debug message with context.
func Debug(ctx context.Context, msg string, fields Fields) {
	getLogger().Debug(ctx, msg, fields)
}

// Info logs an info message with context.
func Info(ctx context.Context, msg string, fields Fields) {
	getLogger().Info(ctx, msg, fields)
}

// Warn logs a warning message with context.
func Warn(ctx context.Context, msg string, fields Fields) {
	getLogger().Warn(ctx, msg, fields)
}

// Error logs an error message with context.
func Error(ctx context.Context, msg string, fields Fields) {
	getLogger().Error(ctx, msg, fields)
}

// ErrorWithError logs an error message with an error object and context.
func ErrorWithError(ctx context.Context, err error, msg string, fields Fields) {
	getLogger().ErrorWithError(ctx, err, msg, fields)
}

// Fields2 builds a Fields map from two key/value pairs.
func Fields2(k1 string, v1 any, k2 string, v2 any) Fields {
	return Fields{k1: v1, k2: v2}
}

// Fields3 builds a Fields map from three key/value pairs.
func Fields3(k1 string, v1 any, k2 string, v2 any, k3 string, v3 any) Fields {
	return Fields{k1: v1, k2: v2, k3: v3}
}
