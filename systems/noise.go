package systems

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// NoiseField samples normalized 2D simplex noise for obstacle placement.
type NoiseField struct {
	noise opensimplex.Noise
	scale float64
}

// NewNoiseField creates a field with the given seed. scale converts track
// units to noise space.
func NewNoiseField(seed int64, scale float64) *NoiseField {
	return &NoiseField{
		noise: opensimplex.NewNormalized(seed),
		scale: scale,
	}
}

// Sample returns the field value in [0, 1] at (x, y).
func (f *NoiseField) Sample(x, y float64) float64 {
	return f.noise.Eval2(x*f.scale, y*f.scale)
}

// Candidate is a cell center whose noise value passed the threshold.
type Candidate struct {
	X, Y  float64
	Value float64
}

// Candidates samples the field on a grid of step-sized cells over
// width x height and returns the cell centers above threshold.
func (f *NoiseField) Candidates(width, height, step, threshold float64) []Candidate {
	var out []Candidate
	for y := step / 2; y < height; y += step {
		for x := step / 2; x < width; x += step {
			if v := f.Sample(x, y); v > threshold {
				out = append(out, Candidate{X: x, Y: y, Value: v})
			}
		}
	}
	return out
}
