// Package logger wraps zap initialization so the rest of the application
// receives a ready-to-use structured logger.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger holds the application-wide zap logger.
type Logger struct {
	// Log is the underlying zap logger. It is a no-op until Init is called.
	Log *zap.Logger
}

// New returns a Logger with a no-op zap instance.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init builds a production zap logger at the given level ("Debug",
// "Info", "Warn", "Error") and replaces the no-op instance.
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	log, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	l.Log = log
	return nil
}
