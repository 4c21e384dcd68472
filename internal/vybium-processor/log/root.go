// Package log holds the process-wide structured logger. It discards
// everything until a caller installs a handler with SetDefault.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
)

const (
	// Module names attached to every record as the "module" attribute
	ProcessModule  = "process"
	DecoderModule  = "decoder"
	ChipletsModule = "chiplets"
	AdviceModule   = "advice"
)

var root atomic.Pointer[slog.Logger]

func init() {
	root.Store(slog.New(slog.DiscardHandler))
}

// ParseLevel converts a level name into a slog level
func ParseLevel(lvl string) (slog.Level, error) {
	switch strings.ToUpper(lvl) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid level: %s", lvl)
	}
}

// NewTextLogger returns a logger writing key=value records to w
func NewTextLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetDefault replaces the root logger. A nil logger restores discarding.
func SetDefault(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	root.Store(l)
}

// Root returns the root logger
func Root() *slog.Logger {
	return root.Load()
}

// Module returns a child of l tagged with the module name. A nil l means
// the root logger.
func Module(l *slog.Logger, module string) *slog.Logger {
	if l == nil {
		l = Root()
	}
	return l.With("module", module)
}
