// Package testlog hands tests a logger that stays quiet unless asked.
package testlog

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
)

// EnvTestLog enables log output during tests when set. Output goes through
// the test writer so it interleaves correctly with failure messages.
const EnvTestLog = "DUSBLINK_TEST_LOG"

// Logger returns a trace-level logger when EnvTestLog is set and a no-op
// logger otherwise.
func Logger(t *testing.T) zerolog.Logger {
	t.Helper()
	if os.Getenv(EnvTestLog) == "" {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.TraceLevel)
}
