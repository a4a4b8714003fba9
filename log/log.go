// Package log defines the structured Logger interface used by every engine
// in this module (ice, sleet, hail, alpha), backed by zap.
package log

import "go.uber.org/zap"

// Logger is the minimal structured logging surface engines depend on.
// Implementations must be safe for concurrent use.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	// With returns a Logger that prepends fields to every subsequent call.
	With(fields ...zap.Field) Logger
}

type zapLogger struct {
	l *zap.Logger
}

// New wraps a *zap.Logger to satisfy Logger.
func New(l *zap.Logger) Logger {
	return zapLogger{l: l}
}

// NewProduction builds a Logger using zap's production defaults (JSON,
// info level).
func NewProduction() (Logger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(l), nil
}

// NewDevelopment builds a Logger using zap's development defaults (console,
// debug level).
func NewDevelopment() (Logger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return New(l), nil
}

func (z zapLogger) Debug(msg string, fields ...zap.Field) { z.l.Debug(msg, fields...) }
func (z zapLogger) Info(msg string, fields ...zap.Field)  { z.l.Info(msg, fields...) }
func (z zapLogger) Warn(msg string, fields ...zap.Field)  { z.l.Warn(msg, fields...) }
func (z zapLogger) Error(msg string, fields ...zap.Field) { z.l.Error(msg, fields...) }

func (z zapLogger) With(fields ...zap.Field) Logger {
	return zapLogger{l: z.l.With(fields...)}
}

// NoOp returns a Logger that discards everything, for tests.
func NoOp() Logger {
	return New(zap.NewNop())
}
