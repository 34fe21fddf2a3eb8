package systems

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Axes of the local agent frame. Forward is +Y, up is +Z.
var (
	AxisX   = r3.Vec{X: 1}
	Forward = r3.Vec{Y: 1}
	Up      = r3.Vec{Z: 1}
)

// Identity is the zero rotation.
var Identity = quat.Number{Real: 1}

// clamp clamps v between lo and hi.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Unit returns v scaled to length 1, or the zero vector unchanged.
func Unit(v r3.Vec) r3.Vec {
	if r3.Norm(v) == 0 {
		return v
	}
	return r3.Unit(v)
}

// AxisAngle returns the unit quaternion rotating by rad radians about axis.
func AxisAngle(axis r3.Vec, rad float64) quat.Number {
	u := Unit(axis)
	s, c := math.Sincos(rad / 2)
	return quat.Number{Real: c, Imag: u.X * s, Jmag: u.Y * s, Kmag: u.Z * s}
}

// Normalize scales q to unit length. The zero quaternion becomes Identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// Rotate applies the unit rotation q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Heading returns the world-space forward direction of rotation q.
func Heading(q quat.Number) r3.Vec {
	return Rotate(q, Forward)
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
