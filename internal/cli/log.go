// Package cli implements the exprtrail command-line interface.
//
// This package provides commands for rendering the rewrite trace of a typez
// document as stable node-link diagrams, inspecting and replaying it
// interactively, hosting it over HTTP, and managing the artifact cache. The
// CLI is built using cobra and logs via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - render: Write one DOT, SVG, PNG or JSON artifact per rewrite step
//   - steps: Print a summary table of every step
//   - play: Step through the trace in the terminal
//   - watch: Re-render whenever the document changes on disk
//   - validate: Check a document and reconcile every step
//   - serve: Host documents and their steps over HTTP
//   - cache: Manage the artifact cache
//
// # Configuration
//
// Defaults are read from $XDG_CONFIG_HOME/exprtrail/config.toml (or --config).
// Flags always win over the file.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging and
// --log-format for machine-readable output, which suits serve behind a log
// collector. Loggers are passed through context.Context.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Log formats accepted by --log-format.
const (
	logFormatText   = "text"
	logFormatJSON   = "json"
	logFormatLogfmt = "logfmt"
)

// newLogger creates a text logger writing to w, with timestamps formatted as
// "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// setLogFormat switches l to the named formatter.
func setLogFormat(l *log.Logger, format string) error {
	switch format {
	case logFormatText, "":
		l.SetFormatter(log.TextFormatter)
	case logFormatJSON:
		l.SetFormatter(log.JSONFormatter)
	case logFormatLogfmt:
		l.SetFormatter(log.LogfmtFormatter)
	default:
		return fmt.Errorf("invalid log format %q (must be one of: text, json, logfmt)", format)
	}
	return nil
}

// progress logs the completion of an operation with its elapsed time.
// Not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time rounded to the millisecond, as in
// "Rendered 12 artifacts (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Info(fmt.Sprintf("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond)))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx for loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached to ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
