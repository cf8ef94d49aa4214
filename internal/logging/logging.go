// Package logging holds the process-wide zerolog logger.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the package-level logger. It discards everything until Init runs.
var Logger = zerolog.Nop()

// Init sets the global level and points Logger at w with a timestamp and the
// service name. Unknown levels fall back to info.
func Init(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	Logger = zerolog.New(w).With().
		Timestamp().
		Str("service", "agora").
		Logger()
	return Logger
}

// Component returns a child of Logger tagged with component.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// SanitizePath replaces ID segments that follow known collections with
// placeholders so logs carry routes, not identifiers.
func SanitizePath(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		switch parts[i-1] {
		case "debates":
			if parts[i] != "categories" && parts[i] != "" {
				parts[i] = ":debateId"
			}
		case "arguments":
			if parts[i] != "with-votes" && parts[i] != "" {
				parts[i] = ":argumentId"
			}
		}
	}
	return strings.Join(parts, "/")
}
