package observability

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment knobs honored by InitLogger.
const (
	EnvLogLevel   = "DUSBLINK_LOG_LEVEL"
	EnvLogNoColor = "DUSBLINK_LOG_NOCOLOR"
)

// InitLogger builds the process logger writing human-readable lines to
// stderr, keeping stdout free for command output. The returned logger is
// also installed as the zerolog global.
func InitLogger(app string, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    os.Getenv(EnvLogNoColor) != "",
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// ParseLevel maps a level name to a zerolog level. Unknown names report
// false so the caller can complain with context.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info", "":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	default:
		return zerolog.InfoLevel, false
	}
}

// LevelFromEnv reads EnvLogLevel, falling back to info when unset or
// unparseable.
func LevelFromEnv() zerolog.Level {
	level, _ := ParseLevel(os.Getenv(EnvLogLevel))
	return level
}
