package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Bounds is the rectangular track area in the XY plane, anchored at the origin.
type Bounds struct {
	Width, Height float64
}

// Contains reports whether p lies inside the bounds shrunk by margin.
func (b Bounds) Contains(p r3.Vec, margin float64) bool {
	return p.X >= margin && p.Y >= margin &&
		p.X <= b.Width-margin && p.Y <= b.Height-margin
}

// RayExit returns the distance along dir from origin to the boundary wall.
// It returns +Inf when the ray runs parallel to every wall it could hit.
func (b Bounds) RayExit(origin, dir r3.Vec) float64 {
	t := math.Inf(1)
	if dir.X > 0 {
		t = math.Min(t, (b.Width-origin.X)/dir.X)
	} else if dir.X < 0 {
		t = math.Min(t, -origin.X/dir.X)
	}
	if dir.Y > 0 {
		t = math.Min(t, (b.Height-origin.Y)/dir.Y)
	} else if dir.Y < 0 {
		t = math.Min(t, -origin.Y/dir.Y)
	}
	return math.Max(t, 0)
}

// RaySphere returns the distance along the unit vector dir from origin to
// the first intersection with the sphere. Origins inside the sphere hit at
// distance 0. ok is false when the ray misses or the sphere lies behind.
func RaySphere(origin, dir, center r3.Vec, radius float64) (dist float64, ok bool) {
	oc := r3.Sub(origin, center)
	c := r3.Dot(oc, oc) - radius*radius
	if c <= 0 {
		return 0, true
	}
	b := r3.Dot(oc, dir)
	if b > 0 {
		return 0, false
	}
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	return -b - math.Sqrt(disc), true
}

// Overlaps reports whether two spheres intersect.
func Overlaps(a r3.Vec, ra float64, b r3.Vec, rb float64) bool {
	d := r3.Sub(a, b)
	r := ra + rb
	return r3.Dot(d, d) <= r*r
}
