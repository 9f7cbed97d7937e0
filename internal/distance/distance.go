// Package distance implements the BFS distance oracle of spec.md §4.3: for
// a board and a set of deposits, the shortest empty-cell distance to any
// deposit egress's neighbourhood, memoized per (board, deposits) pair.
//
// Grounded on original_source/solver/src/distances.rs. The Rust
// implementation keeps its cache in a `lazy_static` global `Mutex`; here it
// is an explicit *Oracle* value so callers (and tests) control its
// lifetime instead of relying on hidden process-wide state — the one
// deliberate structural deviation from the source file, otherwise ported
// as-is including its eviction policy.
package distance

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/perf-analysis/internal/board"
	"github.com/perf-analysis/internal/geometry"
	"github.com/perf-analysis/internal/object"
	"github.com/perf-analysis/pkg/collections"
)

// maxCacheEntries caps the oracle's memoization table (~50_000 entries ~
// 10MB, per the source comment). Once exceeded, every second entry is
// evicted.
const maxCacheEntries = 50_000

type cacheKey struct {
	boardHash    uint64
	depositsHash uint64
}

// Oracle memoizes BFS distance maps. Safe for concurrent use: the worker
// pool in internal/runner shares one Oracle across goroutines.
type Oracle struct {
	mu    sync.Mutex
	cache map[cacheKey]map[geometry.Point]uint32
}

// NewOracle returns an empty distance oracle.
func NewOracle() *Oracle {
	return &Oracle{cache: map[cacheKey]map[geometry.Point]uint32{}}
}

// Distances returns, for every empty cell reachable from a deposit egress's
// neighbourhood, the shortest 4-connected distance to that neighbourhood.
// Cached by (board hash, deposits hash); the returned map must not be
// mutated by the caller since it may be shared with other callers.
func (o *Oracle) Distances(b *board.Board, deposits []object.Object) map[geometry.Point]uint32 {
	key := cacheKey{boardHash: b.Hash(), depositsHash: hashDeposits(deposits)}

	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.cache) > maxCacheEntries {
		i := 0
		for k := range o.cache {
			if i%2 == 0 {
				delete(o.cache, k)
			}
			i++
		}
	}

	if d, ok := o.cache[key]; ok {
		return d
	}
	d := computeDistances(b, deposits)
	o.cache[key] = d
	return d
}

func hashDeposits(deposits []object.Object) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, dep := range deposits {
		id := dep.ID()
		for i := 0; i < 8; i++ {
			buf[i] = byte(id >> (8 * i))
		}
		h.Write(buf[:])
	}
	return h.Sum64()
}

func computeDistances(b *board.Board, deposits []object.Object) map[geometry.Point]uint32 {
	distances := map[geometry.Point]uint32{}
	visited := collections.NewBitset(int(b.Width()) * int(b.Height()))
	index := func(p geometry.Point) int { return int(p.Y)*int(b.Width()) + int(p.X) }

	type queued struct {
		distance uint32
		point    geometry.Point
	}
	var queue []queued

	width, height := int(b.Width()), int(b.Height())

	for _, dep := range deposits {
		for _, egress := range dep.Egresses() {
			for _, p := range geometry.NeighboursOf(egress) {
				if !geometry.InBounds(p, width, height) || visited.Test(index(p)) {
					continue
				}
				visited.Set(index(p))
				if b.IsEmptyAt(p.X, p.Y) {
					queue = append(queue, queued{distance: 0, point: p})
				}
			}
		}
	}

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if old, ok := distances[cur.point]; ok {
			if cur.distance < old {
				distances[cur.point] = cur.distance
			}
		} else {
			distances[cur.point] = cur.distance
		}
		for _, p := range geometry.NeighboursOf(cur.point) {
			if !geometry.InBounds(p, width, height) || visited.Test(index(p)) {
				continue
			}
			visited.Set(index(p))
			if b.IsEmptyAt(p.X, p.Y) {
				queue = append(queue, queued{distance: cur.distance + 1, point: p})
			}
		}
	}

	return distances
}
