package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// NavGrid stores a navigation grid over the track for route planning.
// Cells are marked as blocked (true) or open (false).
type NavGrid struct {
	cells    []bool // true = blocked
	cellSize float64
	width    int // grid width in cells
	height   int // grid height in cells
}

// Disc is a circular obstacle footprint in the XY plane.
type Disc struct {
	Center r3.Vec
	Radius float64
}

// NewNavGrid creates a navigation grid over bounds with obstacles inflated by
// inflation. Cells closer than inflation to a wall are blocked too.
func NewNavGrid(bounds Bounds, cellSize float64, obstacles []Disc, inflation float64) *NavGrid {
	w := max(int(math.Ceil(bounds.Width/cellSize)), 1)
	h := max(int(math.Ceil(bounds.Height/cellSize)), 1)

	grid := &NavGrid{
		cells:    make([]bool, w*h),
		cellSize: cellSize,
		width:    w,
		height:   h,
	}

	for gy := 0; gy < h; gy++ {
		for gx := 0; gx < w; gx++ {
			center := grid.GridToWorld(gx, gy)
			if !bounds.Contains(center, inflation) {
				grid.cells[gy*w+gx] = true
			}
		}
	}

	// Stamp each obstacle over the cells its inflated disc covers
	for _, ob := range obstacles {
		r := ob.Radius + inflation
		minX, minY := grid.WorldToGrid(ob.Center.X-r, ob.Center.Y-r)
		maxX, maxY := grid.WorldToGrid(ob.Center.X+r, ob.Center.Y+r)
		minX, minY = max(minX, 0), max(minY, 0)
		maxX, maxY = min(maxX, w-1), min(maxY, h-1)

		for gy := minY; gy <= maxY; gy++ {
			for gx := minX; gx <= maxX; gx++ {
				c := grid.GridToWorld(gx, gy)
				dx := c.X - ob.Center.X
				dy := c.Y - ob.Center.Y
				if dx*dx+dy*dy < r*r {
					grid.cells[gy*w+gx] = true
				}
			}
		}
	}

	return grid
}

// Size returns the grid dimensions in cells.
func (g *NavGrid) Size() (w, h int) { return g.width, g.height }

// IsBlocked returns true if the given nav grid cell is blocked.
func (g *NavGrid) IsBlocked(gx, gy int) bool {
	if gx < 0 || gx >= g.width || gy < 0 || gy >= g.height {
		return true // Out of bounds is blocked
	}
	return g.cells[gy*g.width+gx]
}

// IsBlockedWorld returns true if the world position is in a blocked cell.
func (g *NavGrid) IsBlockedWorld(x, y float64) bool {
	gx, gy := g.WorldToGrid(x, y)
	return g.IsBlocked(gx, gy)
}

// WorldToGrid converts world coordinates to nav grid coordinates.
func (g *NavGrid) WorldToGrid(x, y float64) (gx, gy int) {
	gx = int(math.Floor(x / g.cellSize))
	gy = int(math.Floor(y / g.cellSize))
	return
}

// GridToWorld converts nav grid coordinates to the cell center.
func (g *NavGrid) GridToWorld(gx, gy int) r3.Vec {
	return r3.Vec{
		X: (float64(gx) + 0.5) * g.cellSize,
		Y: (float64(gy) + 0.5) * g.cellSize,
	}
}
