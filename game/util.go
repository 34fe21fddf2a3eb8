package game

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// normalizeAngle wraps angle to [-pi, pi].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func clampf(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func vec(v [3]float64) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// segmentDistance returns the distance from p to the segment ab.
func segmentDistance(p, a, b r3.Vec) float64 {
	ab := r3.Sub(b, a)
	lenSq := r3.Dot(ab, ab)
	if lenSq == 0 {
		return r3.Norm(r3.Sub(p, a))
	}
	t := clampf(r3.Dot(r3.Sub(p, a), ab)/lenSq, 0, 1)
	return r3.Norm(r3.Sub(p, r3.Add(a, r3.Scale(t, ab))))
}
