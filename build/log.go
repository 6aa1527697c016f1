package build

import (
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btclog"
)

// LogWriter is the writer behind the shared logging backend. The default
// build writes every line to stderr and, when set, to RotatorPipe. The
// nolog build tag turns Write into a no-op.
type LogWriter struct {
	// RotatorPipe receives a copy of every log line, usually a
	// RotatingLogWriter. It may be nil.
	RotatorPipe io.Writer
}

// NewSubLogger returns the logger of a subsystem created by genSubLogger.
// Without a generator the logger is disabled, which is what library
// packages use until a binary registers them with a SubLoggerManager.
func NewSubLogger(subsystem string,
	genSubLogger func(string) btclog.Logger) btclog.Logger {

	if genSubLogger == nil {
		return btclog.Disabled
	}

	return genSubLogger(subsystem)
}

// DebugLevels is a parsed debug level string such as "info,HDKY=trace".
type DebugLevels struct {
	// Global is the level of every subsystem. It is empty if the string
	// only names individual subsystems.
	Global string

	// Subsystems maps subsystem codes to the level overriding Global.
	Subsystems map[string]string
}

// ParseDebugLevels parses a debug level string. It is either a single level
// for all subsystems, a comma separated list of <subsystem>=<level> pairs,
// or a level followed by such pairs. Subsystem codes are not checked here,
// see SubLoggerManager.SetDebugLevels.
func ParseDebugLevels(level string) (*DebugLevels, error) {
	levels := &DebugLevels{
		Subsystems: make(map[string]string),
	}

	for i, entry := range strings.Split(level, ",") {
		subsystem, subLevel, isPair := strings.Cut(entry, "=")
		if !isPair {
			if i != 0 {
				return nil, fmt.Errorf("the debug level %q must "+
					"come first, use <subsystem>=<level> "+
					"for the others", entry)
			}
			if !validLogLevel(entry) {
				return nil, fmt.Errorf("the specified debug "+
					"level [%v] is invalid", entry)
			}

			levels.Global = entry
			continue
		}

		switch {
		case subsystem == "" || strings.Contains(subLevel, "="):
			return nil, fmt.Errorf("the debug level pair [%v] is "+
				"malformed, use subsystem1=level1,"+
				"subsystem2=level2", entry)

		case !validLogLevel(subLevel):
			return nil, fmt.Errorf("the specified debug level "+
				"[%v] of %v is invalid", subLevel, subsystem)
		}

		if _, ok := levels.Subsystems[subsystem]; ok {
			return nil, fmt.Errorf("subsystem %v is given more "+
				"than one debug level", subsystem)
		}
		levels.Subsystems[subsystem] = subLevel
	}

	return levels, nil
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical", "off":
		return true
	}

	return false
}
