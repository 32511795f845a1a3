// Copyright (c) 2026 VeilForms, Inc.
//
// This file is part of veilkey.
//
// veilkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@veilforms.com for commercial licensing options.

package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/veilforms/veilkey/pkg/correlation"
)

// SlogAdapter wraps a slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	logger *slog.Logger
	fields []Field
}

// SlogConfig configures the slog adapter.
type SlogConfig struct {
	// Logger is the underlying slog logger. If nil, one is created.
	Logger *slog.Logger

	// Level is the minimum log level to output.
	Level Level

	// Handler is the slog handler to use (e.g. JSONHandler, TextHandler).
	// If nil and Logger is nil, a TextHandler writing to os.Stderr is used.
	Handler slog.Handler
}

// NewSlogAdapter creates a new slog adapter.
func NewSlogAdapter(config *SlogConfig) *SlogAdapter {
	if config == nil {
		config = &SlogConfig{}
	}

	if config.Logger == nil {
		if config.Handler == nil {
			config.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: levelToSlogLevel(config.Level),
			})
		}
		config.Logger = slog.New(config.Handler)
	}

	return &SlogAdapter{
		logger: config.Logger,
		fields: make([]Field, 0),
	}
}

// Debug logs a debug message.
func (l *SlogAdapter) Debug(msg string, fields ...Field) {
	l.log(slog.LevelDebug, msg, fields...)
}

// Info logs an informational message.
func (l *SlogAdapter) Info(msg string, fields ...Field) {
	l.log(slog.LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *SlogAdapter) Warn(msg string, fields ...Field) {
	l.log(slog.LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *SlogAdapter) Error(msg string, fields ...Field) {
	l.log(slog.LevelError, msg, fields...)
}

// InfoContext logs an informational message with the correlation ID from ctx.
func (l *SlogAdapter) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(slog.LevelInfo, msg, addCorrelationID(ctx, fields)...)
}

// DebugContext logs a debug message with the correlation ID from ctx.
func (l *SlogAdapter) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(slog.LevelDebug, msg, addCorrelationID(ctx, fields)...)
}

// WarnContext logs a warning message with the correlation ID from ctx.
func (l *SlogAdapter) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(slog.LevelWarn, msg, addCorrelationID(ctx, fields)...)
}

// ErrorContext logs an error message with the correlation ID from ctx.
func (l *SlogAdapter) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(slog.LevelError, msg, addCorrelationID(ctx, fields)...)
}

// With creates a child logger with the given fields.
func (l *SlogAdapter) With(fields ...Field) Logger {
	allFields := make([]Field, 0, len(l.fields)+len(fields))
	allFields = append(allFields, l.fields...)
	allFields = append(allFields, fields...)

	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}

	return &SlogAdapter{
		logger: l.logger.With(args...),
		fields: allFields,
	}
}

func (l *SlogAdapter) log(level slog.Level, msg string, fields ...Field) {
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	l.logger.Log(context.Background(), level, msg, args...)
}

func addCorrelationID(ctx context.Context, fields []Field) []Field {
	if ctx == nil {
		return fields
	}
	if id := correlation.GetCorrelationID(ctx); id != "" {
		fields = append(fields, String("correlation_id", id))
	}
	return fields
}

func levelToSlogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var _ Logger = (*SlogAdapter)(nil)
