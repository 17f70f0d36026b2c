// Package corelog defines the structured logging seam of the governance
// core. node.New takes a Logger at construction time, defaulting to NoOp so
// tests stay quiet unless a caller wires one in; the other components do
// not log.
package corelog

import "go.uber.org/zap"

// Logger is the minimal structured-logging surface the governance core
// depends on. *zap.SugaredLogger does not satisfy it directly (its With
// returns *zap.SugaredLogger), so NewZap wraps one in an adapter; NoOp serves
// tests and callers that don't care about logs.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Logger
}

// zapLogger adapts *zap.SugaredLogger to Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZap wraps a *zap.Logger as a Logger.
func NewZap(l *zap.Logger) Logger {
	return &zapLogger{s: l.Sugar()}
}

// NewProduction builds a Logger backed by zap's JSON production config,
// matching the teacher's convention of JSON logs in deployed nodes.
func NewProduction() (Logger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZap(l), nil
}

// NewDevelopment builds a Logger backed by zap's human-readable console
// config, for local runs and tests that want to see output.
func NewDevelopment() (Logger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return NewZap(l), nil
}

func (z *zapLogger) Debugw(msg string, kv ...interface{}) { z.s.Debugw(msg, kv...) }
func (z *zapLogger) Infow(msg string, kv ...interface{})  { z.s.Infow(msg, kv...) }
func (z *zapLogger) Warnw(msg string, kv ...interface{})  { z.s.Warnw(msg, kv...) }
func (z *zapLogger) Errorw(msg string, kv ...interface{}) { z.s.Errorw(msg, kv...) }

func (z *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{s: z.s.With(kv...)}
}

// noopLogger discards everything. It is the default for components that
// receive a nil Logger.
type noopLogger struct{}

// NoOp returns a Logger that discards all output.
func NoOp() Logger { return noopLogger{} }

func (noopLogger) Debugw(string, ...interface{}) {}
func (noopLogger) Infow(string, ...interface{})  {}
func (noopLogger) Warnw(string, ...interface{})  {}
func (noopLogger) Errorw(string, ...interface{}) {}
func (n noopLogger) With(...interface{}) Logger  { return n }

// OrNoOp returns l if non-nil, else NoOp(). node.New calls this so callers
// may pass a nil Logger.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOp()
	}
	return l
}
