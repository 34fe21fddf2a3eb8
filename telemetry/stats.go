// Package telemetry records per-generation training statistics, milestones
// and performance data.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/eann/genetic"
)

// GenerationStats summarises one ranked generation.
type GenerationStats struct {
	RunID      string  `csv:"run_id"`
	Generation int     `csv:"generation"`
	Population int     `csv:"population"`
	SimTimeSec float64 `csv:"sim_time"`

	// Evaluation distribution
	BestEval  float64 `csv:"best_eval"`
	WorstEval float64 `csv:"worst_eval"`
	MeanEval  float64 `csv:"mean_eval"`
	StdEval   float64 `csv:"std_eval"`
	EvalP10   float64 `csv:"eval_p10"`
	EvalP50   float64 `csv:"eval_p50"`
	EvalP90   float64 `csv:"eval_p90"`

	// Genotypes that completed the track (evaluation >= 1)
	Finishers int `csv:"finishers"`

	// Filled by Collector when a host reports them
	Checkpoints      int `csv:"checkpoints"`
	DeathsTimeout    int `csv:"deaths_timeout"`
	DeathsCollision  int `csv:"deaths_collision"`
	DeathsOutOfBound int `csv:"deaths_out_of_bounds"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeEvaluationStats calculates mean, population std and percentiles.
func ComputeEvaluationStats(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)
	return mean, std, p10, p50, p90
}

// NewGenerationStats computes the evaluation summary of population.
func NewGenerationStats(runID string, generation int, population []*genetic.Genotype) GenerationStats {
	s := GenerationStats{
		RunID:      runID,
		Generation: generation,
		Population: len(population),
	}
	if len(population) == 0 {
		return s
	}

	evals := genetic.Evaluations(population)
	s.BestEval = floats.Max(evals)
	s.WorstEval = floats.Min(evals)
	s.MeanEval, s.StdEval, s.EvalP10, s.EvalP50, s.EvalP90 = ComputeEvaluationStats(evals)
	for _, e := range evals {
		if e >= 1 {
			s.Finishers++
		}
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("population", s.Population),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Float64("best_eval", s.BestEval),
		slog.Float64("mean_eval", s.MeanEval),
		slog.Float64("std_eval", s.StdEval),
		slog.Float64("eval_p50", s.EvalP50),
		slog.Int("finishers", s.Finishers),
		slog.Int("checkpoints", s.Checkpoints),
		slog.Int("deaths_timeout", s.DeathsTimeout),
		slog.Int("deaths_collision", s.DeathsCollision),
		slog.Int("deaths_out_of_bounds", s.DeathsOutOfBound),
	)
}

// LogStats logs the generation stats using slog.
func (s GenerationStats) LogStats() {
	slog.Info("generation",
		"generation", s.Generation,
		"best_eval", s.BestEval,
		"mean_eval", s.MeanEval,
		"p50", s.EvalP50,
		"finishers", s.Finishers,
		"deaths_timeout", s.DeathsTimeout,
		"deaths_collision", s.DeathsCollision,
	)
}
