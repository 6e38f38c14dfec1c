package testutil

import (
	"io"

	"github.com/dmoreira/transferwire/internal/logging"
)

// NullLogger returns a logger that discards all output
func NullLogger() *logging.Logger {
	logger := logging.New(logging.LevelError)
	logger.SetOutput(io.Discard)
	return logger
}
