// Package logger provides structured logging for the StudyHub progression
// core. It is a thin wrapper around go.uber.org/zap that fixes the logging
// surface used across the codebase: leveled, key/value structured entries
// with component scoping via With.
//
// Domain packages stay log-free; only application handlers, infrastructure
// and background jobs receive a *Logger.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Logger is the project-wide structured logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// Config holds logger configuration.
type Config struct {
	// Mode selects the encoder and defaults: "production" emits JSON,
	// anything else emits the human-readable development format.
	Mode string

	// Level is the minimum level to emit ("debug", "info", "warn", "error").
	Level string
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Mode:  "development",
		Level: "info",
	}
}

// New creates a new Logger from the given configuration.
func New(cfg Config) (*Logger, error) {
	var zapCfg zap.Config
	switch strings.ToLower(cfg.Mode) {
	case "prod", "production":
		zapCfg = zap.NewProductionConfig()
	default:
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	zl, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: zl.Sugar()}, nil
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// NewObserved returns a logger backed by an in-memory core together with
// the recorded entries. Used in tests that assert on log output.
func NewObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{sugar: zap.New(core).Sugar()}, logs
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// With returns a logger with the given key/value pairs attached to every
// entry. Typically used to scope a logger to a component:
//
//	log := baseLog.With("component", "profile_repo")
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

// Debug logs a message at debug level with structured key/value pairs.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs a message at info level with structured key/value pairs.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs a message at warn level with structured key/value pairs.
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs a message at error level with structured key/value pairs.
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Fatal logs a message at fatal level and exits.
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}
