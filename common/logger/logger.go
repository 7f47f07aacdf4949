package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides a unified logging interface for the evaluation engine.
// It is backed by zap in normal operation and falls back to plain stdout
// when zap has been disabled for tests.

// LogLevel represents log severity levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	// CurrentLevel is the current logging level (default: Info)
	CurrentLevel = LevelInfo

	// UseZap controls whether messages go through the zap backend.
	// Set to false in tests to use fmt.Printf.
	UseZap = true

	mu    sync.Mutex
	sugar *zap.SugaredLogger
)

// backend returns the zap sugared logger, building a production logger on
// first use.
func backend() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if sugar == nil {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		zl, err := cfg.Build(zap.AddCallerSkip(2))
		if err != nil {
			// zap's production config only fails on bad output paths
			zl = zap.NewNop()
		}
		sugar = zl.Sugar()
	}
	return sugar
}

// Init replaces the backend with an externally configured zap logger.
func Init(zl *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	sugar = zl.Sugar()
}

// Debugf logs a debug message
func Debugf(format string, args ...interface{}) {
	if CurrentLevel > LevelDebug {
		return
	}
	logf(LevelDebug, format, args...)
}

// Infof logs an info message
func Infof(format string, args ...interface{}) {
	if CurrentLevel > LevelInfo {
		return
	}
	logf(LevelInfo, format, args...)
}

// Warnf logs a warning message
func Warnf(format string, args ...interface{}) {
	if CurrentLevel > LevelWarn {
		return
	}
	logf(LevelWarn, format, args...)
}

// Errorf logs an error message
func Errorf(format string, args ...interface{}) {
	logf(LevelError, format, args...)
}

// logf is the internal logging function
func logf(level LogLevel, format string, args ...interface{}) {
	if !UseZap {
		fallbackLog(level, format, args...)
		return
	}
	switch level {
	case LevelDebug:
		backend().Debugf(format, args...)
	case LevelInfo:
		backend().Infof(format, args...)
	case LevelWarn:
		backend().Warnf(format, args...)
	case LevelError:
		backend().Errorf(format, args...)
	}
}

// fallbackLog uses fmt.Printf when the zap backend is disabled
func fallbackLog(level LogLevel, format string, args ...interface{}) {
	prefix := levelPrefix(level)
	fmt.Printf(prefix+format+"\n", args...)
}

// levelPrefix returns the prefix for each log level
func levelPrefix(level LogLevel) string {
	switch level {
	case LevelDebug:
		return "[DEBUG] "
	case LevelInfo:
		return "[INFO] "
	case LevelWarn:
		return "[WARN] "
	case LevelError:
		return "[ERROR] "
	default:
		return "[LOG] "
	}
}

// SetLevel sets the minimum log level
func SetLevel(level LogLevel) {
	CurrentLevel = level
}

// DisableZap disables the zap backend (useful for tests)
func DisableZap() {
	UseZap = false
}

// EnableZap enables the zap backend (default)
func EnableZap() {
	UseZap = true
}

// Sync flushes any buffered log entries.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if sugar != nil {
		_ = sugar.Sync()
	}
}
