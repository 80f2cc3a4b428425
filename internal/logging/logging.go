// Package logging configures the process-wide zerolog logger. All pipeline
// phases log through loggers derived from this one, so every line carries
// the application tag and a timestamp.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup returns the root logger in the requested format: "text" for a
// human-friendly console rendering, anything else for structured JSON.
func Setup(format string) zerolog.Logger {
	var log zerolog.Logger
	if format == "text" {
		log = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.With().Timestamp().Str("app", "tariffload").Logger()
}
