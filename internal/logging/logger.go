package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
)

type requestIDKey struct{}

// Logger holds the zerolog logger instance
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new logger instance with the specified log level
func NewLogger(logLevel LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	level, err := zerolog.ParseLevel(string(logLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{
		logger: logger,
	}
}

// WithContext adds contextual fields to the logger
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logCtx := l.logger.With()

	if reqID := GetRequestID(ctx); reqID != "" {
		logCtx = logCtx.Str("req_id", reqID)
	}

	contextualLogger := logCtx.Logger()
	return &contextualLogger
}

// LogHTTPRequest logs HTTP request information
func (l *Logger) LogHTTPRequest(c *fiber.Ctx, duration time.Duration) {
	reqID, _ := c.Locals("requestid").(string)

	event := l.logger.Info()
	if status := c.Response().StatusCode(); status >= 500 {
		event = l.logger.Error()
	}

	event.
		Str("req_id", reqID).
		Str("ip", c.IP()).
		Str("method", c.Method()).
		Str("url", c.OriginalURL()).
		Int("status", c.Response().StatusCode()).
		Int64("duration_ms", duration.Milliseconds()).
		Str("user_agent", c.Get(fiber.HeaderUserAgent)).
		Msg("HTTP request processed")
}

// LogJobProcessing logs job processing information
func (l *Logger) LogJobProcessing(queue, jobType string, duration time.Duration, err error) {
	event := l.logger.With().
		Str("queue", queue).
		Str("job_type", jobType).
		Int64("duration_ms", duration.Milliseconds()).
		Bool("success", err == nil).
		Logger()

	if err == nil {
		event.Info().Msg("Job processed successfully")
	} else {
		event.Error().Err(err).Msg("Job processing failed")
	}
}

// FiberLoggerMiddleware creates a Fiber-compatible logging middleware
func (l *Logger) FiberLoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		l.LogHTTPRequest(c, time.Since(start))

		return err
	}
}

// ContextWithRequestID stores a request ID for later log enrichment
func ContextWithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, reqID)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	reqID, _ := ctx.Value(requestIDKey{}).(string)
	return reqID
}
