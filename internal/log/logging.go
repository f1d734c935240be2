// Package log builds the configured slog.Logger for rudderwalk.
//
// Without a log file, records below Error go to stdout and errors to
// stderr, so shell redirection can separate the two. With a log file,
// everything is duplicated into the file as well.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LevelTrace sits below Debug and is used for per-report output dumps.
const LevelTrace slog.Level = -8

func ParseLevel(s string) slog.Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanout replicates records to all wrapped handlers.
type fanout struct{ hs []slog.Handler }

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f.hs {
		_ = h.Handle(ctx, r)
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(f.hs))
	for i, h := range f.hs {
		out[i] = h.WithAttrs(attrs)
	}
	return fanout{hs: out}
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(f.hs))
	for i, h := range f.hs {
		out[i] = h.WithGroup(name)
	}
	return fanout{hs: out}
}

// levelRange passes only records inside [min, max] to the wrapped handler.
type levelRange struct {
	min, max slog.Level
	h        slog.Handler
}

func (l levelRange) Enabled(ctx context.Context, level slog.Level) bool {
	if level < l.min || level > l.max {
		return false
	}
	return l.h.Enabled(ctx, level)
}

func (l levelRange) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < l.min || r.Level > l.max {
		return nil
	}
	return l.h.Handle(ctx, r)
}

func (l levelRange) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelRange{min: l.min, max: l.max, h: l.h.WithAttrs(attrs)}
}

func (l levelRange) WithGroup(name string) slog.Handler {
	return levelRange{min: l.min, max: l.max, h: l.h.WithGroup(name)}
}

// Setup builds a slog.Logger from a level name and an optional file path.
// The returned closers must be closed by the caller on shutdown.
func Setup(levelName, file string) (*slog.Logger, []io.Closer, error) {
	level := ParseLevel(levelName)

	var handlers []slog.Handler
	if file == "" {
		handlers = append(handlers, levelRange{
			min: level, max: slog.LevelError - 1,
			h: slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
		})
		handlers = append(handlers, levelRange{
			min: slog.LevelError, max: slog.Level(127),
			h: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}),
		})
	} else {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	var closers []io.Closer
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, f)
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return slog.New(fanout{hs: handlers}), closers, nil
}
