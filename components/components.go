// Package components defines ECS components for the training track.
package components

// Obstacle marks a static sphere that kills agents on contact and blocks
// sensor rays.
type Obstacle struct {
	// Noise is the field value that placed the obstacle.
	Noise float64
}

// Checkpoint marks a waypoint agents must reach in order.
type Checkpoint struct {
	Index int
}
