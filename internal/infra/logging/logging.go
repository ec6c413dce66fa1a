package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New arma el logger raíz: json por defecto, "text" usa ConsoleWriter.
func New(level, format string) zerolog.Logger {
	return newWithWriter(level, format, os.Stdout)
}

func newWithWriter(level, format string, out io.Writer) zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch level {
	case "debug":
		lvl = zerolog.DebugLevel
	case "info":
		lvl = zerolog.InfoLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
