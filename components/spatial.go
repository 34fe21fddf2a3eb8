package components

import "gonum.org/v1/gonum/spatial/r3"

// Position is an entity's world position.
type Position struct {
	r3.Vec
}
