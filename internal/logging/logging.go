// Package logging builds the diagnostic logger. Reporter output never goes
// through it.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger on w. Debug output is enabled when debug is
// set; otherwise only warnings and errors are written.
func New(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	cw := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
		NoColor:    true,
	}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}
