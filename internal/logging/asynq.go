package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// AsynqLogger adapts a zerolog logger to the asynq.Logger interface so the
// broker's own messages end up in the same structured stream.
type AsynqLogger struct {
	logger zerolog.Logger
}

// NewAsynqLogger creates an adapter tagged with the given component name
func NewAsynqLogger(component string) *AsynqLogger {
	return &AsynqLogger{
		logger: GetGlobalLogger().logger.With().Str("component", component).Logger(),
	}
}

func (a *AsynqLogger) Debug(args ...interface{}) {
	a.logger.Debug().Msg(fmt.Sprint(args...))
}

func (a *AsynqLogger) Info(args ...interface{}) {
	a.logger.Info().Msg(fmt.Sprint(args...))
}

func (a *AsynqLogger) Warn(args ...interface{}) {
	a.logger.Warn().Msg(fmt.Sprint(args...))
}

func (a *AsynqLogger) Error(args ...interface{}) {
	a.logger.Error().Msg(fmt.Sprint(args...))
}

// Fatal logs and exits, matching the asynq contract
func (a *AsynqLogger) Fatal(args ...interface{}) {
	a.logger.Fatal().Msg(fmt.Sprint(args...))
}
