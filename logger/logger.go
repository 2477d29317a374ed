// Package logger wraps log/slog with a handler tailored to a terminal-
// attached emulator: a plain "time level message key=value..." line
// written to a log file and, when mirroring is switched on, copied to
// stderr for records at Warn or above. The shape follows a from-scratch slog.Handler wrapper rather
// than slog's built-in text handler, so the five cpmemu verbosity tiers
// map onto slog levels the caller chooses once at startup instead of
// being re-decided on every log call.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Level names the five verbosity tiers cpmemu documents, from least to
// most chatty.
type Level int

const (
	LevelError Level = iota
	LevelCounters
	LevelFDOSTrace
	LevelFCBDump
	LevelRecordDump
	LevelAllSyscalls
)

func (l Level) slogLevel() slog.Level {
	// Only a two-way split matters to slog's own filtering (Warn and
	// above for LevelError, Debug and above otherwise); the five cpmemu tiers are distinguished by which call
	// sites choose to log at all, not by five distinct slog levels.
	if l == LevelError {
		return slog.LevelWarn
	}
	return slog.LevelDebug
}

// Handler is a slog.Handler that formats each record as a single line
// and writes it to file, additionally writing to stderr when the
// record's level meets mirrorLevel.
type Handler struct {
	out         io.Writer
	mirror      io.Writer
	mirrorLevel slog.Level
	minLevel    slog.Level
	attrs       []slog.Attr
}

// New opens (or creates) path as the log destination and returns a
// *slog.Logger built on Handler. When debugMirror is true, records at
// Warn or above are also written to stderr, the way a foreground
// interactive run wants errors visible without tailing a file.
func New(path string, level Level, debugMirror bool) (*slog.Logger, *os.File, error) {
	var f *os.File
	var out io.Writer = io.Discard
	if path != "" {
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, err
		}
		out = f
	}
	h := &Handler{
		out:         out,
		mirror:      os.Stderr,
		mirrorLevel: slog.LevelWarn,
		minLevel:    level.slogLevel(),
	}
	if !debugMirror {
		h.mirror = io.Discard
	}
	return slog.New(h), f, nil
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(r.Time.Format(time.RFC3339))
	sb.WriteByte(' ')
	sb.WriteString(r.Level.String())
	sb.WriteByte(' ')
	sb.WriteString(r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
		return true
	})
	sb.WriteByte('\n')
	line := sb.String()
	if _, err := io.WriteString(h.out, line); err != nil {
		return err
	}
	if r.Level >= h.mirrorLevel {
		io.WriteString(h.mirror, line)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &cp
}

func (h *Handler) WithGroup(_ string) slog.Handler {
	// Groups are not meaningful to this line format; flatten instead of
	// erroring, matching the handler's "cheap terminal format" intent.
	return h
}
