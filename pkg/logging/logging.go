package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a console logger tagged with component. Debug output is
// enabled when verbose is set.
func New(w io.Writer, component string, verbose bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
