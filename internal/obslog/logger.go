// Package obslog builds the process-wide *slog.Logger, constructed
// explicitly and threaded through the call chain rather than configured
// as a global.
package obslog

import (
	"log/slog"
	"os"
)

// New builds a *slog.Logger writing to stdout. format selects the handler:
// "json" for machine-readable output, anything else for the human-readable
// text handler.
func New(format string) *slog.Logger {
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, nil)
	default:
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	return slog.New(handler)
}
