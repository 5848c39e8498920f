// Package logging configures colored structured logging with tint, optionally
// copying every record to a size-rotated JSON log file.
//
// Usage:
//
//	logging.Setup()                          // level from LOG_LEVEL env
//	logging.SetupWithLevel(slog.LevelDebug)  // explicit level override
//	closer := logging.SetupWithOptions(logging.Options{Level: slog.LevelInfo, File: "logs/billbook.log"})
//	defer closer.Close()
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures SetupWithOptions.
type Options struct {
	Level slog.Level

	// File, when set, receives a JSON copy of every record.
	// It is rotated at MaxSizeMB and old files are compressed.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Console defaults to os.Stderr.
	Console io.Writer
}

// Setup configures colored logging at the level specified by LOG_LEVEL env var
// (default: INFO).
func Setup() {
	SetupWithLevel(LevelFromEnv())
}

// SetupWithLevel configures colored logging at the given level.
func SetupWithLevel(level slog.Level) {
	SetupWithOptions(Options{Level: level})
}

// SetupWithOptions installs the default logger and returns a closer for the
// log file, if any.
func SetupWithOptions(opts Options) io.Closer {
	slog.SetDefault(New(opts))
	if opts.File == "" {
		return nopCloser{}
	}
	return fileWriters.get(opts)
}

// New builds a logger without installing it.
func New(opts Options) *slog.Logger {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	var h slog.Handler = tint.NewHandler(console, &tint.Options{
		Level:      opts.Level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	})
	if opts.File != "" {
		file := slog.NewJSONHandler(fileWriters.get(opts), &slog.HandlerOptions{Level: opts.Level})
		h = teeHandler{h, file}
	}
	return slog.New(h)
}

// LevelFromEnv parses LOG_LEVEL.
func LevelFromEnv() slog.Level {
	return ParseLevel(os.Getenv("LOG_LEVEL"))
}

// ParseLevel maps debug, warn and error to their levels and anything else to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fileWriters keeps one lumberjack logger per path, so New and
// SetupWithOptions share the writer they close.
var fileWriters = &writerCache{m: make(map[string]*lumberjack.Logger)}

type writerCache struct {
	mu sync.Mutex
	m  map[string]*lumberjack.Logger
}

func (c *writerCache) get(opts Options) *lumberjack.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.m[opts.File]; ok {
		return w
	}
	w := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    orDefault(opts.MaxSizeMB, 10),
		MaxBackups: orDefault(opts.MaxBackups, 7),
		MaxAge:     orDefault(opts.MaxAgeDays, 28),
		Compress:   true,
	}
	c.m[opts.File] = w
	return w
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// teeHandler sends each record to every handler that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
