package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/eann/config"
	"github.com/pthm-cable/eann/game"
	"github.com/pthm-cable/eann/telemetry"
)

// FitnessEvaluator runs headless training sessions and scores them.
type FitnessEvaluator struct {
	params         *ParamVector
	maxGenerations int
	maxTicks       int64
	seeds          []int64
	baseConfig     *config.Config

	// Best run tracking
	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame *telemetry.HallOfFame
	lastBest       float64 // mean best evaluation from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxGenerations int, maxTicks int64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:         params,
		maxGenerations: maxGenerations,
		maxTicks:       maxTicks,
		seeds:          seeds,
		baseConfig:     baseCfg,
		bestFitness:    math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame from the best evaluation.
func (fe *FitnessEvaluator) BestHallOfFame() *telemetry.HallOfFame {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

// LastBest returns the mean best evaluation of the most recent Evaluate call.
func (fe *FitnessEvaluator) LastBest() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastBest
}

// runResult holds the results from a single training run.
type runResult struct {
	bestEval    float64
	meanEvals   []float64 // mean evaluation per generation
	generations int
	hallOfFame  *telemetry.HallOfFame
	err         error
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Evolution.SaveStatistics = false
	cfg.Evolution.SaveFirstNGenotypes = 0

	results := make([]*runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runTraining(cfg.Clone(), s)
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalBest float64
	bestSeedFitness := math.Inf(1)
	var bestSeedHallOfFame *telemetry.HallOfFame
	for _, r := range results {
		f := computeFitness(r)
		totalFitness += f
		totalBest += r.bestEval
		if f < bestSeedFitness {
			bestSeedFitness = f
			bestSeedHallOfFame = r.hallOfFame
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestHallOfFame = bestSeedHallOfFame
	}
	fe.lastBest = totalBest / n
	fe.mu.Unlock()

	return avgFitness
}

// runTraining trains until maxGenerations ranked generations or maxTicks.
func (fe *FitnessEvaluator) runTraining(cfg *config.Config, seed int64) *runResult {
	result := &runResult{}

	g, err := game.NewGameWithOptions(cfg, game.Options{
		Seed:           seed,
		RunID:          fmt.Sprintf("optimize-%d", seed),
		StepsPerUpdate: 1,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		result.err = err
		return result
	}
	g.Manager().OnGeneration(func(s telemetry.GenerationStats) {
		result.meanEvals = append(result.meanEvals, s.MeanEval)
	})

	for g.CompletedGenerations() < fe.maxGenerations && g.Tick() < fe.maxTicks {
		if err := g.UpdateHeadless(); err != nil {
			result.err = err
			break
		}
	}

	result.generations = g.CompletedGenerations()
	result.bestEval = float64(g.Manager().BestEvaluation())
	result.hallOfFame = g.Manager().HallOfFame()
	g.Unload()
	return result
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(bestEval × (1 + 0.2 × learning)), where learning is the
// clamped slope of the mean evaluation across generations. Failed runs
// score 0.
func computeFitness(r *runResult) float64 {
	if r.err != nil {
		return 0
	}
	return -(r.bestEval * (1.0 + 0.2*learningRate(r.meanEvals)))
}

// learningRate fits a line through the per-generation mean evaluations and
// returns its slope scaled to [0, 1].
func learningRate(means []float64) float64 {
	if len(means) < 2 {
		return 0
	}
	xs := make([]float64, len(means))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, means, nil, false)
	return clamp01(slope * float64(len(means)))
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
