package game

import "log/slog"

// Options configures a headless training host.
type Options struct {
	Seed           int64
	OutputDir      string // CSV logs and config snapshot (empty = disabled)
	RunID          string // Defaults to a new UUID
	LogStats       bool   // Log generation and perf stats via slog
	StepsPerUpdate int    // Ticks per UpdateHeadless call
	Logger         *slog.Logger
}

// DefaultOptions returns options for a single-step host with a fixed seed.
func DefaultOptions() Options {
	return Options{
		Seed:           42,
		StepsPerUpdate: 1,
	}
}
