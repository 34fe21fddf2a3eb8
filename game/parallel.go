package game

import (
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/eann/agent"
	"github.com/pthm-cable/eann/systems"
	"github.com/pthm-cable/eann/telemetry"
)

// parallelThreshold is the minimum agent count to use parallel collision checks.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// agentSnapshot captures read-only agent state for parallel processing.
type agentSnapshot struct {
	controller *agent.Controller
	pos        r3.Vec
}

// collisionVerdict is the outcome of one agent's collision check.
type collisionVerdict struct {
	controller *agent.Controller
	cause      telemetry.DeathCause
	hit        bool
}

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	neighbors []systems.Neighbor
}

// workChunk represents a range of snapshots for a worker to process.
type workChunk struct {
	start, end int
}

// parallelState holds resources for parallel collision checks.
type parallelState struct {
	snapshots  []agentSnapshot
	verdicts   []collisionVerdict
	scratches  []workerScratch
	numWorkers int

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newParallelState() *parallelState {
	numWorkers := runtime.GOMAXPROCS(0)
	scratches := make([]workerScratch, numWorkers)
	for i := range scratches {
		scratches[i].neighbors = make([]systems.Neighbor, 0, 32)
	}
	return &parallelState{
		numWorkers: numWorkers,
		scratches:  scratches,
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(g *Game) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(g, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker processes chunks until stopped.
func (p *parallelState) worker(g *Game, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			g.computeChunk(chunk.start, chunk.end, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// detectCollisions checks every living agent against the track. The checks
// only read the ECS world, so large populations fan out to the worker pool.
// The returned verdicts are applied single-threaded in controller order.
func (g *Game) detectCollisions(controllers []*agent.Controller) []collisionVerdict {
	p := g.parallel
	p.snapshots = p.snapshots[:0]
	for _, c := range controllers {
		a := c.Agent()
		if a == nil || !a.IsAlive() {
			continue
		}
		p.snapshots = append(p.snapshots, agentSnapshot{controller: c, pos: a.Position})
	}

	n := len(p.snapshots)
	if cap(p.verdicts) < n {
		p.verdicts = make([]collisionVerdict, n)
	}
	p.verdicts = p.verdicts[:n]
	if n == 0 {
		return p.verdicts
	}

	if n < parallelThreshold {
		g.computeChunk(0, n, &p.scratches[0])
	} else {
		g.computeParallel(n)
	}
	return p.verdicts
}

// computeParallel dispatches work to the worker pool.
func (g *Game) computeParallel(n int) {
	p := g.parallel
	if !p.running {
		p.startWorkers(g)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}

// computeChunk checks a range of snapshots for a single worker.
func (g *Game) computeChunk(i0, i1 int, scratch *workerScratch) {
	radius := g.agentRadius()
	for i := i0; i < i1; i++ {
		snap := &g.parallel.snapshots[i]
		cause, hit := g.collisionAt(snap.pos, radius, scratch)
		g.parallel.verdicts[i] = collisionVerdict{
			controller: snap.controller,
			cause:      cause,
			hit:        hit,
		}
	}
}

// stopParallelWorkers should be called when shutting down the host.
func (g *Game) stopParallelWorkers() {
	if g.parallel != nil {
		g.parallel.stopWorkers()
	}
}
