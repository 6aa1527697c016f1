package build

import (
	"fmt"
	"sort"
	"sync"

	"github.com/btcsuite/btclog"
)

// SubLoggerManager hands out the subsystem loggers of a binary. All of them
// write to the same backend, and their levels are set together from a
// debug level string.
type SubLoggerManager struct {
	backend *btclog.Backend

	mu         sync.Mutex
	subLoggers map[string]btclog.Logger
}

// NewSubLoggerManager constructs a new SubLoggerManager writing to w.
func NewSubLoggerManager(w *LogWriter) *SubLoggerManager {
	return &SubLoggerManager{
		backend:    btclog.NewBackend(w),
		subLoggers: make(map[string]btclog.Logger),
	}
}

// GenSubLogger creates a new sub-logger from the shared backend. It has the
// signature expected by NewSubLogger.
func (r *SubLoggerManager) GenSubLogger(tag string) btclog.Logger {
	return r.backend.Logger(tag)
}

// RegisterSubLogger creates the logger of a subsystem and hands it to the
// subsystem through useLogger. New loggers start at DefaultLogLevel.
func (r *SubLoggerManager) RegisterSubLogger(subsystem string,
	useLogger func(btclog.Logger)) {

	logger := NewSubLogger(subsystem, r.GenSubLogger)
	level, _ := btclog.LevelFromString(DefaultLogLevel())
	logger.SetLevel(level)

	r.mu.Lock()
	r.subLoggers[subsystem] = logger
	r.mu.Unlock()

	useLogger(logger)
}

// SupportedSubsystems returns a sorted list of the registered subsystems.
func (r *SubLoggerManager) SupportedSubsystems() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.supportedSubsystems()
}

func (r *SubLoggerManager) supportedSubsystems() []string {
	subsystems := make([]string, 0, len(r.subLoggers))
	for subsysID := range r.subLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)

	return subsystems
}

// Level returns the current level of a registered subsystem.
func (r *SubLoggerManager) Level(subsystem string) (btclog.Level, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger, ok := r.subLoggers[subsystem]
	if !ok {
		return btclog.LevelOff, false
	}

	return logger.Level(), true
}

// SetDebugLevels parses level with ParseDebugLevels and applies it. Every
// subsystem named in level must be registered. On error no level changes.
func (r *SubLoggerManager) SetDebugLevels(level string) error {
	levels, err := ParseDebugLevels(level)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for subsystem := range levels.Subsystems {
		if _, ok := r.subLoggers[subsystem]; !ok {
			return fmt.Errorf("the specified subsystem [%v] is "+
				"invalid, supported subsystems are %v",
				subsystem, r.supportedSubsystems())
		}
	}

	for subsystem, logger := range r.subLoggers {
		subLevel, ok := levels.Subsystems[subsystem]
		if !ok {
			subLevel = levels.Global
		}
		if subLevel == "" {
			continue
		}

		lvl, _ := btclog.LevelFromString(subLevel)
		logger.SetLevel(lvl)
	}

	return nil
}
