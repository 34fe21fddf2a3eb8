package agent

import "gonum.org/v1/gonum/spatial/r3"

func vec(v [3]float64) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
