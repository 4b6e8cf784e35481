// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package slog provides a thin wrapper around zerolog.Logger, adapted from
// the teacher's internal/logger package for a single-process embedded
// library: there is no request/response cycle to hang a logger off of, so
// FromRequest is dropped and FromContext remains the only context-based
// accessor, used by components that receive a context.Context from the
// facade's callers.
package slog

import (
	"context"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger embeds zerolog.Logger so all standard zerolog methods (Debug,
// Info, Warn, Error, etc.) are available directly on *Logger.
type Logger struct {
	zerolog.Logger
}

// New constructs a *Logger for the given component label (e.g. "store",
// "devicekey", "kvstore"), writing JSON lines to os.Stdout with a "func"
// caller field recording the fully-qualified function name.
func New(component string) *Logger {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return runtime.FuncForPC(pc).Name()
	}
	zerolog.CallerFieldName = "func"

	logger := zerolog.New(os.Stdout).With().
		Str("component", component).
		Timestamp().
		Caller().
		Logger()

	return &Logger{logger}
}

// Nop returns a *Logger that discards all log output. Used as the default
// when a caller does not inject a logger, and throughout tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// GetChildLogger returns a new *Logger that inherits all fields of the
// receiver, for a component that wants to add its own context fields
// without mutating the parent.
func (l *Logger) GetChildLogger() *Logger {
	return &Logger{l.With().Logger()}
}

// FromContext extracts the zerolog.Logger stored in ctx via zerolog's
// log.Ctx helper. If none was attached, zerolog's global logger is
// returned, so this never returns nil.
func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}
