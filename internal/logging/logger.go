// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process logger.
type Options struct {
	Level string // debug, info, warn, error
	File  string // optional rotated log file, written in addition to stdout
}

// Log file rotation limits.
const (
	logMaxSizeMB  = 50
	logMaxBackups = 5
	logMaxAgeDays = 30
)

// New builds a text logger writing to stdout and, when opts.File is set, to
// a lumberjack-rotated file. Sensitive attributes are redacted. The returned
// closer flushes the file and is never nil.
func New(opts Options) (*slog.Logger, io.Closer) {
	return NewWithWriter(opts, os.Stdout)
}

// NewWithWriter is New with a custom primary writer.
func NewWithWriter(opts Options, w io.Writer) (*slog.Logger, io.Closer) {
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
			Compress:   true,
		}
		w = io.MultiWriter(w, rotator)
		closer = rotator
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(opts.Level),
		ReplaceAttr: NewReplaceAttr(),
	})
	return slog.New(handler), closer
}

// ParseLevel converts a configured level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
