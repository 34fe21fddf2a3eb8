package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/eann/config"
	"github.com/pthm-cable/eann/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output generation and perf stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	runID := flag.String("run-id", "", "Run identifier (empty = random UUID)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	maxGenerations := flag.Int("max-generations", 0, "Stop after N ranked generations (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	opts := game.Options{
		Seed:           rngSeed,
		OutputDir:      *outputDir,
		RunID:          *runID,
		LogStats:       *logStats,
		StepsPerUpdate: *stepsPerUpdate,
		Logger:         logger,
	}

	g, err := game.NewGameWithOptions(cfg, opts)
	if err != nil {
		slog.Error("failed to start training", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	slog.Info("starting training",
		"seed", rngSeed,
		"run", g.Manager().RunID(),
		"population", cfg.Evolution.PopulationSize,
		"max_ticks", *maxTicks,
		"max_generations", *maxGenerations,
		"steps_per_update", *stepsPerUpdate,
	)

	code := 0
	for {
		if err := g.UpdateHeadless(); err != nil {
			slog.Error("training failed", "tick", g.Tick(), "error", err)
			code = 1
			break
		}
		if *maxTicks > 0 && g.Tick() >= *maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			break
		}
		if *maxGenerations > 0 && g.CompletedGenerations() >= *maxGenerations {
			slog.Info("max generations reached", "generations", g.CompletedGenerations())
			break
		}
		if ctx.Err() != nil {
			slog.Info("interrupted", "tick", g.Tick())
			break
		}
	}

	stop()
	if err := g.Unload(); err != nil {
		slog.Error("failed to close outputs", "error", err)
		code = 1
	}
	slog.Info("training finished",
		"generations", g.CompletedGenerations(),
		"best_evaluation", g.Manager().BestEvaluation(),
		"finishers", g.Finishers(),
	)
	os.Exit(code)
}
