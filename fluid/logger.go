package fluid

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards all records and reports every level disabled.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the package logger. By default fluid is silent.
// Pass nil to restore the silent default.
//
// Levels used:
//   - [slog.LevelDebug]: field allocation, program cache misses
//   - [slog.LevelInfo]: format negotiation, resizes
//   - [slog.LevelWarn]: capability fallbacks
//   - [slog.LevelError]: compile failures, context loss
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
