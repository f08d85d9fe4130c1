// Package logging builds the zerolog logger daffy uses for every
// diagnostic that isn't a program's own "print" output: parse errors,
// submission errors, execution failures, and the updater's deadlock
// diagnostic all go through here, to standard error.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console-formatted logger writing to w. verbose raises
// the level to debug; otherwise only info-and-above is emitted.
func New(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}
