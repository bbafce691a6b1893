// Package observability wires up the process-wide structured logger. All
// components receive their logger through constructors; this package only
// owns the default handler setup for the CLI entrypoint.
package observability

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Instrument installs the default slog logger writing to stderr, so command
// output on stdout stays machine-readable.
func Instrument(level slog.Level, logFormat string) error {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(logFormat) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unsupported log format %q (expected: json, text)", logFormat)
	}

	slog.SetDefault(slog.New(handler))

	return nil
}
