package systems

import (
	"container/heap"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// RoutePlanner provides A* routing over a navigation grid.
type RoutePlanner struct {
	grid *NavGrid

	// Reusable data structures (cleared between searches)
	openHeap  *nodeHeap
	closedSet map[int]struct{}
	cameFrom  map[int]int
	gScore    map[int]float64
}

// astarNode is a node in the A* search.
type astarNode struct {
	gx, gy int     // Grid coordinates
	f      float64 // f = g + h (priority)
	index  int     // Heap index
}

// nodeHeap implements heap.Interface for A* open set.
type nodeHeap []*astarNode

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// NewRoutePlanner creates an A* planner over grid.
func NewRoutePlanner(grid *NavGrid) *RoutePlanner {
	return &RoutePlanner{
		grid:      grid,
		openHeap:  &nodeHeap{},
		closedSet: make(map[int]struct{}, 256),
		cameFrom:  make(map[int]int, 256),
		gScore:    make(map[int]float64, 256),
	}
}

// FindPath computes a route from start to goal.
// Returns simplified waypoints in world coordinates, or nil if no route exists.
func (a *RoutePlanner) FindPath(start, goal r3.Vec) []r3.Vec {
	grid := a.grid

	startGX, startGY := grid.WorldToGrid(start.X, start.Y)
	goalGX, goalGY := grid.WorldToGrid(goal.X, goal.Y)

	// Endpoints inside inflated obstacles snap to the nearest open cell
	if grid.IsBlocked(startGX, startGY) {
		startGX, startGY = a.findNearestOpen(startGX, startGY)
		if startGX < 0 {
			return nil
		}
	}
	if grid.IsBlocked(goalGX, goalGY) {
		goalGX, goalGY = a.findNearestOpen(goalGX, goalGY)
		if goalGX < 0 {
			return nil
		}
	}

	if startGX == goalGX && startGY == goalGY {
		return []r3.Vec{start, goal}
	}

	*a.openHeap = (*a.openHeap)[:0]
	clear(a.closedSet)
	clear(a.cameFrom)
	clear(a.gScore)

	startID := startGY*grid.width + startGX
	goalID := goalGY*grid.width + goalGX

	a.gScore[startID] = 0
	heap.Push(a.openHeap, &astarNode{gx: startGX, gy: startGY, f: heuristic(startGX, startGY, goalGX, goalGY)})

	for a.openHeap.Len() > 0 {
		current := heap.Pop(a.openHeap).(*astarNode)
		currentID := current.gy*grid.width + current.gx

		if currentID == goalID {
			path := a.reconstructPath(startID, goalID)
			path[0], path[len(path)-1] = start, goal
			return a.simplifyPath(path)
		}
		if _, ok := a.closedSet[currentID]; ok {
			continue
		}
		a.closedSet[currentID] = struct{}{}

		// 8-connected neighbors; the last four are diagonal
		neighbors := [8][2]int{
			{current.gx - 1, current.gy},
			{current.gx + 1, current.gy},
			{current.gx, current.gy - 1},
			{current.gx, current.gy + 1},
			{current.gx - 1, current.gy - 1},
			{current.gx + 1, current.gy - 1},
			{current.gx - 1, current.gy + 1},
			{current.gx + 1, current.gy + 1},
		}

		for i, n := range neighbors {
			ngx, ngy := n[0], n[1]
			if grid.IsBlocked(ngx, ngy) {
				continue
			}

			// Diagonal moves must not cut corners
			if i >= 4 {
				dx := ngx - current.gx
				dy := ngy - current.gy
				if grid.IsBlocked(current.gx+dx, current.gy) || grid.IsBlocked(current.gx, current.gy+dy) {
					continue
				}
			}

			neighborID := ngy*grid.width + ngx
			if _, ok := a.closedSet[neighborID]; ok {
				continue
			}

			moveCost := 1.0
			if i >= 4 {
				moveCost = math.Sqrt2
			}
			tentativeG := a.gScore[currentID] + moveCost

			if existingG, exists := a.gScore[neighborID]; exists && tentativeG >= existingG {
				continue
			}

			a.cameFrom[neighborID] = currentID
			a.gScore[neighborID] = tentativeG
			heap.Push(a.openHeap, &astarNode{gx: ngx, gy: ngy, f: tentativeG + heuristic(ngx, ngy, goalGX, goalGY)})
		}
	}

	return nil
}

// heuristic computes the Euclidean distance heuristic for A*.
func heuristic(gx1, gy1, gx2, gy2 int) float64 {
	return math.Hypot(float64(gx2-gx1), float64(gy2-gy1))
}

// reconstructPath builds the path from cameFrom map.
func (a *RoutePlanner) reconstructPath(startID, goalID int) []r3.Vec {
	var pathIDs []int
	current := goalID
	for current != startID {
		pathIDs = append(pathIDs, current)
		var ok bool
		current, ok = a.cameFrom[current]
		if !ok {
			break
		}
	}
	pathIDs = append(pathIDs, startID)

	path := make([]r3.Vec, len(pathIDs))
	for i := range pathIDs {
		id := pathIDs[len(pathIDs)-1-i]
		path[i] = a.grid.GridToWorld(id%a.grid.width, id/a.grid.width)
	}
	return path
}

// simplifyPath removes waypoints that have line of sight past them.
func (a *RoutePlanner) simplifyPath(path []r3.Vec) []r3.Vec {
	if len(path) <= 2 {
		return path
	}

	simplified := make([]r3.Vec, 0, len(path))
	simplified = append(simplified, path[0])
	anchor := path[0]
	for i := 1; i < len(path)-1; i++ {
		if !a.hasLineOfSight(anchor, path[i+1]) {
			simplified = append(simplified, path[i])
			anchor = path[i]
		}
	}
	return append(simplified, path[len(path)-1])
}

// hasLineOfSight checks if there's a clear line between two points on the nav grid.
func (a *RoutePlanner) hasLineOfSight(from, to r3.Vec) bool {
	d := r3.Sub(to, from)
	dist := r3.Norm(d)
	if dist < 0.01 {
		return true
	}

	stepSize := a.grid.cellSize * 0.5
	steps := int(dist/stepSize) + 1
	dir := r3.Scale(1/dist, d)

	for i := 0; i <= steps; i++ {
		p := r3.Add(from, r3.Scale(math.Min(float64(i)*stepSize, dist), dir))
		if a.grid.IsBlockedWorld(p.X, p.Y) {
			return false
		}
	}
	return true
}

// findNearestOpen finds the nearest unblocked cell to the given position.
// Returns (-1, -1) if no open cell found within search radius.
func (a *RoutePlanner) findNearestOpen(gx, gy int) (int, int) {
	for radius := 1; radius < 10; radius++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if abs(dx) != radius && abs(dy) != radius {
					continue
				}
				if !a.grid.IsBlocked(gx+dx, gy+dy) {
					return gx + dx, gy + dy
				}
			}
		}
	}
	return -1, -1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// PathLength returns the total length of a polyline.
func PathLength(path []r3.Vec) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += r3.Norm(r3.Sub(path[i], path[i-1]))
	}
	return total
}
