// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package logging creates the structured loggers used by the command line tools
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// NewLogger creates a logger writing to stderr in the given format, json or text
func NewLogger(level slog.Level, format string) *slog.Logger {
	return NewLoggerWithWriter(level, format, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to w
func NewLoggerWithWriter(level slog.Level, format string, w io.Writer) *slog.Logger {
	return slog.New(newHandler(level, format, w))
}

// NewFanoutLogger creates a logger writing every record to all of writers
func NewFanoutLogger(level slog.Level, format string, writers ...io.Writer) *slog.Logger {
	handlers := make([]slog.Handler, 0, len(writers))
	for _, w := range writers {
		handlers = append(handlers, newHandler(level, format, w))
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

func newHandler(level slog.Level, format string, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}

	return slog.NewTextHandler(w, opts)
}

// ParseLevel converts a level name to a slog level, unknown names are info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// Printf adapts a slog logger to the Debugf and Infof logging used by form stores and
// workflows
type Printf struct {
	log *slog.Logger
}

// NewPrintf creates a Printf logger
func NewPrintf(log *slog.Logger) *Printf {
	return &Printf{log: log}
}

func (p *Printf) Debugf(format string, v ...any) {
	p.log.Debug(fmt.Sprintf(format, v...))
}

func (p *Printf) Infof(format string, v ...any) {
	p.log.Info(fmt.Sprintf(format, v...))
}
