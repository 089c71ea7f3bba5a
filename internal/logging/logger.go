// Package logging provides the structured logger used across attachd.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a console logger. verbose lowers the level to debug.
func New(verbose bool) zerolog.Logger {
	return NewWithWriter(os.Stdout, verbose)
}

// NewWithWriter is New with an explicit output, for tests.
func NewWithWriter(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
