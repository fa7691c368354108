package logger

import (
	"os"
	"strings"
	"sync/atomic"
)

// LevelEnv names the environment variable holding the initial level of the
// default logger, e.g. EPCOMMS_LOG_LEVEL=debug. Unset or unknown values select
// InfoLevel.
const LevelEnv = "EPCOMMS_LOG_LEVEL"

// holder lets loggers of different concrete types share one atomic pointer.
type holder struct {
	Logger
}

var defLogger atomic.Pointer[holder]

func init() {
	defLogger.Store(&holder{NewSlog(levelFromEnv(), false)})
}

func levelFromEnv() Level {
	return ParseLevel(strings.ToLower(strings.TrimSpace(os.Getenv(LevelEnv))))
}

// GetLogger returns the logger used by connections, registries and benches
// created without one.
func GetLogger() Logger {
	return defLogger.Load().Logger
}

// SetLogger replaces the default logger. Connections opened earlier keep the
// logger they were created with. A nil logger is ignored.
func SetLogger(l Logger) {
	if l != nil {
		defLogger.Store(&holder{l})
	}
}

// SetLevel sets the level of the current default logger.
func SetLevel(level Level) {
	GetLogger().SetLevel(level)
}
