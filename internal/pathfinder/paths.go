package pathfinder

import (
	"container/heap"
	"math/rand"
	"time"

	"github.com/perf-analysis/internal/board"
	"github.com/perf-analysis/internal/distance"
	"github.com/perf-analysis/internal/geometry"
	"github.com/perf-analysis/internal/object"
)

// maxSearchTime bounds how long a single Next() call may search before
// giving up on finding another path.
const maxSearchTime = 500 * time.Millisecond

// maxStepsWithoutImprovement is the plateau cutoff: K in spec.md §4.4's
// "stop after K candidates without improvement". spec.md states K≈10
// explicitly where original_source/solver/src/paths.rs hardcodes 100; per
// the established precedence (spec.md wins when explicit) this is 10 — see
// DESIGN.md.
const maxStepsWithoutImprovement = 10

// maxPathDistance culls any partial path whose heuristic distance to a
// deposit exceeds this — spec.md §9's "distance cap (>200 triggers skip)".
const maxPathDistance = 200

// searchState is one entry in the best-first priority queue: a candidate
// path plus the board layer it would leave behind if extended, and the
// heuristic distance used to prioritize it.
type searchState struct {
	distance   uint32
	pathLength uint32
	path       *Path
	boardLayer *board.Board
}

type searchQueue []searchState

func (q searchQueue) Len() int { return len(q) }
func (q searchQueue) Less(i, j int) bool {
	if q[i].distance != q[j].distance {
		return q[i].distance < q[j].distance
	}
	return q[i].pathLength < q[j].pathLength
}
func (q searchQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *searchQueue) Push(x any)    { *q = append(*q, x.(searchState)) }
func (q *searchQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Paths is a best-first iterator over candidate connection paths from a set
// of starting ingresses to any deposit, grounded on
// original_source/solver/src/paths.rs. Each call to Next advances the
// shared search frontier and returns the next distinct path found, or nil
// once the time budget is spent or the search plateaus.
type Paths struct {
	distancesToDeposits map[geometry.Point]uint32
	pathsSoFar          map[ID]struct{}
	queue               searchQueue
	rng                 *rand.Rand
}

// NewPaths seeds a search from startPoints toward deposits on board b,
// using oracle for the underlying BFS distance map.
func NewPaths(startPoints []geometry.Point, deposits []object.Object, b *board.Board, oracle *distance.Oracle, rng *rand.Rand) *Paths {
	distancesToDeposits := oracle.Distances(b, deposits)

	minDistance := func(points []geometry.Point) uint32 {
		best := uint32(1<<32 - 1)
		for _, p := range points {
			if d, ok := distancesToDeposits[p]; ok && d < best {
				best = d
			}
		}
		return best
	}

	q := make(searchQueue, 0, len(startPoints))
	for _, ingress := range startPoints {
		p := FromStartingPoints([]geometry.Point{ingress})
		neighbours := geometry.NeighboursOf(ingress)
		d := minDistance(neighbours[:])
		q = append(q, searchState{distance: d, pathLength: 0, path: p, boardLayer: b})
	}
	heap.Init(&q)

	return &Paths{
		distancesToDeposits: distancesToDeposits,
		pathsSoFar:          map[ID]struct{}{},
		queue:               q,
		rng:                 rng,
	}
}

func saturatingAddJitter(d uint32, jitter uint32) uint32 {
	sum := uint64(d) + uint64(jitter)
	if sum > uint64(1<<32-1) {
		return 1<<32 - 1
	}
	return uint32(sum)
}

// Next returns the next distinct candidate path, or nil if none remains
// within the search's time and plateau budget.
func (ps *Paths) Next() *Path {
	minDistanceJittered := func(points []geometry.Point) uint32 {
		best := uint32(1<<32 - 1)
		for _, p := range points {
			if d, ok := ps.distancesToDeposits[p]; ok && d < best {
				best = d
			}
		}
		jitter := uint32(ps.rng.Intn(11))
		return saturatingAddJitter(best, jitter)
	}

	deadline := time.Now().Add(maxSearchTime)

	i := 0
	var minSeen *uint32
	var minSeenAt int

	for ps.queue.Len() > 0 {
		cur := heap.Pop(&ps.queue).(searchState)
		i++

		if time.Now().After(deadline) {
			return nil
		}

		switch {
		case minSeen == nil:
			d := cur.distance
			minSeen = &d
			minSeenAt = i
		case cur.distance < *minSeen:
			d := cur.distance
			minSeen = &d
			minSeenAt = i
		case i-minSeenAt < maxStepsWithoutImprovement:
			// no improvement yet, but still within the plateau budget
		default:
			return nil
		}

		if cur.distance > maxPathDistance {
			continue
		}

		for _, head := range cur.path.Heads() {
			var freeNeighbours []geometry.Point
			for _, n := range geometry.NeighboursOf(head) {
				if cur.boardLayer.IsEmptyAt(n.X, n.Y) {
					freeNeighbours = append(freeNeighbours, n)
				}
			}

			for _, n := range freeNeighbours {
				for mineSubtype := uint8(0); mineSubtype < 4; mineSubtype++ {
					mine := object.MineWithEgressAt(mineSubtype, n)
					mineIngress, ok := mine.Ingress()
					if !ok {
						continue
					}
					d, ok := ps.distancesToDeposits[mineIngress]
					reachesDeposit := ok && d == 0
					if reachesDeposit && cur.boardLayer.CanInsertObject(mine) == nil {
						newPath, err := Append(mine, cur.path)
						if err != nil {
							continue
						}
						id := newPath.ID()
						if _, seen := ps.pathsSoFar[id]; !seen {
							ps.pathsSoFar[id] = struct{}{}
							return newPath
						}
					}
				}

				for subtype := 7; subtype >= 0; subtype-- {
					conveyor := object.ConveyorWithEgressAt(uint8(subtype), n)
					ingress, ok := conveyor.Ingress()
					if !ok {
						continue
					}
					if cur.boardLayer.CanInsertObject(conveyor) == nil {
						newPath, err := Append(conveyor, cur.path)
						if err != nil {
							continue
						}
						d := minDistanceJittered([]geometry.Point{ingress})
						newLayer := cur.boardLayer.Layer()
						newLayer.InsertObjectUnchecked(conveyor)
						heap.Push(&ps.queue, searchState{distance: d, pathLength: cur.pathLength, path: newPath, boardLayer: newLayer})
					}
				}

				for combinerSubtype := uint8(0); combinerSubtype < 4; combinerSubtype++ {
					combiner := object.CombinerWithEgressAt(combinerSubtype, n)
					ingresses := combiner.Ingresses()
					if cur.boardLayer.CanInsertObject(combiner) == nil {
						newPath, err := Append(combiner, cur.path)
						if err != nil {
							continue
						}
						d := minDistanceJittered(ingresses)
						newLayer := cur.boardLayer.Layer()
						newLayer.InsertObjectUnchecked(combiner)
						heap.Push(&ps.queue, searchState{distance: d, pathLength: cur.pathLength, path: newPath, boardLayer: newLayer})
					}
				}
			}
		}
	}

	return nil
}
