package logging

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Global logger instance
var globalLogger *Logger

// InitGlobalLogger initializes the global logger instance
func InitGlobalLogger(level LogLevel, format string) *Logger {
	if format == "json" {
		globalLogger = NewLogger(level, os.Stdout)
	} else {
		globalLogger = NewLogger(level, zerolog.ConsoleWriter{Out: os.Stdout})
	}

	return globalLogger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewLogger(InfoLevel, os.Stdout)
	}
	return globalLogger
}

// Quick logging functions using the global logger

// Info logs an info message
func Info(msg string) {
	GetGlobalLogger().logger.Info().Msg(msg)
}

// Infof logs a formatted info message
func Infof(format string, args ...interface{}) {
	GetGlobalLogger().logger.Info().Msg(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) {
	GetGlobalLogger().logger.Error().Msg(fmt.Sprintf(format, args...))
}

// Fatalf logs a formatted fatal message and exits
func Fatalf(format string, args ...interface{}) {
	GetGlobalLogger().logger.Fatal().Msg(fmt.Sprintf(format, args...))
}

// WithContext creates a logger with context
func WithContext(ctx context.Context) *zerolog.Logger {
	return GetGlobalLogger().WithContext(ctx)
}

// WithModule creates a logger with module field
func WithModule(module string) *zerolog.Logger {
	logger := GetGlobalLogger().logger.With().Str("module", module).Logger()
	return &logger
}

// WithJob creates a logger with job-related fields
func WithJob(queue, jobType string) *zerolog.Logger {
	logger := GetGlobalLogger().logger.With().
		Str("queue", queue).
		Str("job_type", jobType).
		Logger()
	return &logger
}
