// Package logger wraps zap configuration behind a small initialization
// helper shared by the application entrypoints.
package logger

import "go.uber.org/zap"

// Logger wraps a zap.Logger instance.
type Logger struct {
	// Log is the underlying structured logger. It is a no-op logger
	// until Init is called.
	Log *zap.Logger
}

// New returns a Logger backed by a no-op zap logger, safe to use before Init.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the underlying logger with a production zap logger at the
// given level ("debug", "info", "warn", "error"). Returns an error if the
// level cannot be parsed or the logger cannot be built.
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	l.Log = zl
	return nil
}
