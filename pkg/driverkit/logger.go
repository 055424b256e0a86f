package driverkit

import (
	"os"

	"github.com/fivetwenty-io/driverkit/pkg/driver"
	"github.com/rs/zerolog"
)

// zerologAdapter bridges a zerolog.Logger to the driver.Logger interface.
type zerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps a zerolog logger for use as a driver.Logger.
func NewZerologLogger(logger zerolog.Logger) driver.Logger {
	return &zerologAdapter{logger: logger}
}

// NewDefaultLogger returns a driver.Logger writing structured JSON to
// stderr at the given level.
func NewDefaultLogger(level zerolog.Level) driver.Logger {
	logger := zerolog.New(os.Stderr).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &zerologAdapter{logger: logger}
}

func (z *zerologAdapter) Debug(msg string, fields map[string]interface{}) {
	z.logger.Debug().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) Info(msg string, fields map[string]interface{}) {
	z.logger.Info().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) Warn(msg string, fields map[string]interface{}) {
	z.logger.Warn().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) Error(msg string, fields map[string]interface{}) {
	z.logger.Error().Fields(fields).Msg(msg)
}
