// Package logging configures the structured logger shared by every
// component of the forwarder. It mirrors the logrus-based logging
// conventions used elsewhere in the EVE ecosystem, adapted to the
// forwarder's verbosity flags (-v/-q) instead of a config-file level.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger at the given level, JSON-formatted when json is
// true and text-formatted with full timestamps otherwise.
func New(level logrus.Level, json bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)

	if json {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	return logger
}

// LevelFromVerbosity maps the CLI's -v/-q counts to a logrus.Level, starting
// from logrus.InfoLevel and moving one step per occurrence in either
// direction. Clamped to [PanicLevel, TraceLevel].
func LevelFromVerbosity(verbose, quiet int) logrus.Level {
	base := int(logrus.InfoLevel) + verbose - quiet
	if base < int(logrus.PanicLevel) {
		base = int(logrus.PanicLevel)
	}
	if base > int(logrus.TraceLevel) {
		base = int(logrus.TraceLevel)
	}
	return logrus.Level(base)
}

// ForSource returns a child logger tagged with the source name, matching the
// per-collector contextual logging spec.md expects in its error handling
// sections (every log line names its source).
func ForSource(base *logrus.Logger, source string) *logrus.Entry {
	return base.WithField("source", source)
}
