// Package logger holds the compiler/mask composer's process-wide slog
// logger behind a small RWMutex-guarded indirection, so cmd/root.go can
// install a real handler once at startup while internal/compiler's
// keyword-dispatch tracing (gated by IsDebug, to skip building log
// attributes on the hot path when nobody's listening) never needs its own
// *slog.Logger threaded through every call.
package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	global *slog.Logger
	debug  bool
	mu     sync.RWMutex
)

// SetGlobal installs the process-wide logger and records whether debug-level
// tracing (internal/compiler's per-keyword dispatch log lines) is enabled.
func SetGlobal(l *slog.Logger, debugMode bool) {
	mu.Lock()
	defer mu.Unlock()
	global = l
	debug = debugMode
}

// Get returns the installed logger, or a stderr text-handler logger at the
// last-recorded debug level if SetGlobal was never called (e.g. from a test
// that exercises compiler internals directly, bypassing cmd/).
func Get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	if global != nil {
		return global
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// IsDebug reports whether --debug tracing is active, so a caller can skip
// assembling log attributes entirely on the common non-debug path.
func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debug
}