// Package obslog is the structured logging facade used throughout wlcoro. It
// wraps github.com/joeycumines/logiface, backed by the zero-allocation
// github.com/joeycumines/stumpy encoder, behind a narrow interface so the
// runtime packages (ioscheduler, pool, async) never import logiface
// directly.
//
// A package-level default logger exists for call sites that cannot sensibly
// thread a *Logger through (e.g. panic recovery in a goroutine that has
// already lost its originating context), mirroring the event-loop runtime
// this package is descended from.
package obslog

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger wraps a *logiface.Logger[*stumpy.Event], exposing the subset of
// logiface's fluent API that wlcoro components use.
type Logger struct {
	l *logiface.Logger[*stumpy.Event]
}

// New builds a Logger writing newline-delimited JSON to w at the given
// minimum level.
func New(w io.Writer, level logiface.Level) *Logger {
	return &Logger{
		l: stumpy.L.New(
			stumpy.L.WithStumpy(),
			stumpy.L.WithWriter(w),
			stumpy.L.WithLevel(level),
		),
	}
}

// Nop returns a Logger that discards everything, for tests and callers that
// opt out of observability.
func Nop() *Logger {
	return New(io.Discard, logiface.LevelDisabled)
}

func (lg *Logger) Debug() *logiface.Builder[*stumpy.Event] { return lg.l.Debug() }
func (lg *Logger) Info() *logiface.Builder[*stumpy.Event]  { return lg.l.Info() }
func (lg *Logger) Warn() *logiface.Builder[*stumpy.Event]  { return lg.l.Warning() }
func (lg *Logger) Err() *logiface.Builder[*stumpy.Event]   { return lg.l.Err() }

var (
	defaultMu     sync.RWMutex
	defaultLogger atomic.Pointer[Logger]
)

func init() {
	defaultLogger.Store(New(os.Stderr, logiface.LevelInformational))
}

// SetDefault replaces the package-level logger used by Default. Components
// that are handed a *Logger explicitly should prefer that over Default; this
// exists for background goroutines spawned without one in scope (e.g. an
// StaticThreadPool's panic recovery in safeExecute).
func SetDefault(lg *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger.Store(lg)
}

// Default returns the current package-level logger.
func Default() *Logger {
	return defaultLogger.Load()
}
