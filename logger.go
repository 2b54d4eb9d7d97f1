package atmosphere

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/atmosphere/precompute"
	"github.com/gogpu/atmosphere/shader"
)

// nopHandler is a slog.Handler that silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for atmosphere and all its sub-packages.
// By default, atmosphere produces no log output.
//
// Pass nil to disable logging.
//
// Log levels used by atmosphere:
//   - [slog.LevelDebug]: pass timings, table sizes, program compilation
//   - [slog.LevelInfo]: tables precomputed or loaded
//   - [slog.LevelWarn]: half-float fallback, superseded precomputations
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	precompute.SetLogger(l)
	shader.SetLogger(l)
}

// Logger returns the current logger used by atmosphere.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(b precompute.Backend, l *slog.Logger) {
	if ls, ok := b.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
