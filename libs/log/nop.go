package log

import (
	"github.com/rs/zerolog"
)

// NewNopLogger returns a logger that discards everything. Like the default
// logger it can be replaced in place with OverrideWithNewLogger.
func NewNopLogger() Logger {
	return &defaultLogger{
		Logger: zerolog.Nop(),
	}
}
