package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a JSON logger writing to stdout. Debug output is enabled in "dev".
func New(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	l := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if env == "dev" {
		l = l.Level(zerolog.DebugLevel)
	} else {
		l = l.Level(zerolog.InfoLevel)
	}
	return l
}

// Setup builds the logger for env and installs it as the global zerolog logger.
func Setup(env string) zerolog.Logger {
	l := New(env)
	log.Logger = l
	return l
}
