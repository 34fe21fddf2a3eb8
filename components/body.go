package components

// Body holds the collision extent of an entity.
type Body struct {
	Radius float64
}
