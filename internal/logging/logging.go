// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

const prefix = "livebind"

type (
	// Options selects the level and encoding of a logger.
	// Unknown values fall back to info and text.
	Options struct {
		Level  string
		Format string
		// Timestamps adds a time field to every record.
		Timestamps bool
	}

	ctxKey struct{}
)

// New returns a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(opts.Level),
		Formatter:       ParseFormat(opts.Format),
		Prefix:          prefix,
		ReportTimestamp: opts.Timestamps,
	})
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps a config level name to a charmbracelet/log level.
func ParseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ParseFormat maps a config format name to a charmbracelet/log formatter.
func ParseFormat(format string) log.Formatter {
	switch format {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored by WithLogger, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
