package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger shared by the API server and
// the worker. LOG_FORMAT=json selects the machine-readable handler for
// log pipelines; anything else logs readable text for local runs.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
