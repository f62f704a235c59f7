// Package logging provides structured logging for streamcore built on
// log/slog, following the same shape as the teacher's internal/logging
// package: a package-level logger initialized once, per-component child
// loggers, a dynamic level, and attribute normalization.
package logging

import (
	"io"
	"log/slog"
	"math"
	"os"
	"sync"
)

var (
	mu         sync.RWMutex
	root       *slog.Logger
	level      = new(slog.LevelVar)
	initOnce   sync.Once
)

// Trace sits below slog.LevelDebug for render-callback-path tracing that is
// normally compiled out by level filtering rather than by build tags.
const Trace = slog.Level(-8)

var levelNames = map[slog.Leveler]string{
	Trace: "TRACE",
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok {
			if name, exists := levelNames[lvl]; exists {
				a.Value = slog.StringValue(name)
			}
		}
	}
	if a.Value.Kind() == slog.KindFloat64 {
		truncated := math.Trunc(a.Value.Float64()*100) / 100.0
		a.Value = slog.Float64Value(truncated)
	}
	return a
}

// Init configures the root logger to write JSON records to w. It is safe to
// call more than once; only the first call takes effect.
func Init(w io.Writer) {
	initOnce.Do(func() {
		if w == nil {
			w = os.Stderr
		}
		level.Set(slog.LevelInfo)
		handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceAttr,
		})
		mu.Lock()
		root = slog.New(handler)
		mu.Unlock()
	})
}

// SetLevel adjusts the dynamic log level at runtime; safe to call from any
// goroutine, including a parameter-setter invoked by a UI thread.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// ForComponent returns a logger tagged with component, initializing the root
// logger to stderr first if Init was never called.
func ForComponent(component string) *slog.Logger {
	mu.RLock()
	r := root
	mu.RUnlock()
	if r == nil {
		Init(os.Stderr)
		mu.RLock()
		r = root
		mu.RUnlock()
	}
	return r.With("component", component)
}
