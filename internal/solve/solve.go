// Package solve implements the randomized multi-start local search of
// spec.md §4.6: place factories, connect them to deposits with
// backtracking, then opportunistically grow extra supply paths before
// simulating the candidate layout.
//
// Grounded on original_source/solver/src/solve.rs.
package solve

import (
	"math/rand"
	"sort"
	"time"

	"github.com/perf-analysis/internal/board"
	"github.com/perf-analysis/internal/distance"
	"github.com/perf-analysis/internal/geometry"
	"github.com/perf-analysis/internal/object"
	"github.com/perf-analysis/internal/pathfinder"
	"github.com/perf-analysis/internal/simulate"
	"github.com/perf-analysis/pkg/model"
	"github.com/perf-analysis/pkg/utils"
)

const (
	// numMaxFactoryPlacements is the number of locations tried for a single
	// factory before the whole iteration is abandoned.
	numMaxFactoryPlacements = 100
	// probabilityFactorySkipNum/Den gives the chance a factory is skipped
	// during placement, to explore solutions that don't use every product.
	probabilityFactorySkipNum = 1
	probabilityFactorySkipDen = 10
	// numPathsPerFactoryAndResource bounds how many candidate paths are
	// tried per resource before backtracking.
	numPathsPerFactoryAndResource = 15
	// numAdditionalPathsPerFactoryAndResource bounds candidates tried per
	// opportunistic extra path.
	numAdditionalPathsPerFactoryAndResource = 10
	// numPathCombiningIterations is how many times the whole
	// factory-to-deposit connection pass is retried before giving up on an
	// iteration's initial paths.
	numPathCombiningIterations = 10
)

// Result pairs a simulated score with the board that produced it.
type Result struct {
	Score simulate.Result
	Board *board.Board
}

type weightedPositions struct {
	positions []geometry.Point
	weights   []float64
}

// Solver performs one randomized local-search run per Next() call,
// returning the first candidate board that scores above zero within the
// configured time budget, or nil once that budget is spent.
type Solver struct {
	task                 *model.Task
	originalBoard        *board.Board
	depositsByType       map[uint8][]object.Object
	products             []model.Product
	productsBySubtype    map[uint8]model.Product
	bestFactoryPositions map[uint8]weightedPositions
	rng                  *rand.Rand
	maxIterationTime     time.Duration
	oracle               *distance.Oracle
	logger               utils.Logger
	numSolutions         int
}

// NewSolver prepares a solver for task over b: indexes deposits by
// resource type, ranks candidate factory sites per product, and shares
// oracle as the path-finder's distance cache.
func NewSolver(task *model.Task, b *board.Board, rng *rand.Rand, maxIterationTime time.Duration, oracle *distance.Oracle, logger utils.Logger) (*Solver, error) {
	depositsByType := map[uint8][]object.Object{}
	for _, m := range task.Objects {
		o, err := object.FromModelObject(m)
		if err != nil {
			return nil, err
		}
		if o.Kind == object.KindDeposit {
			depositsByType[o.Subtype] = append(depositsByType[o.Subtype], o)
		}
	}

	productsBySubtype := map[uint8]model.Product{}
	for _, p := range task.Products {
		productsBySubtype[p.Subtype] = p
	}

	depositsByProduct := map[uint8][]object.Object{}
	for _, p := range task.Products {
		for resourceIndex, amount := range p.Resources {
			if amount <= 0 {
				continue
			}
			depositsByProduct[p.Subtype] = append(depositsByProduct[p.Subtype], depositsByType[uint8(resourceIndex)]...)
		}
	}

	possiblePositions := findPossibleFactoryPositions(b)

	bestFactoryPositions := map[uint8]weightedPositions{}
	for _, p := range task.Products {
		positions, weights := sortToBestPositionsByDeposits(possiblePositions, depositsByProduct[p.Subtype])
		bestFactoryPositions[p.Subtype] = weightedPositions{positions: positions, weights: weights}
	}

	return &Solver{
		task:                 task,
		originalBoard:        b,
		depositsByType:       depositsByType,
		products:             append([]model.Product(nil), task.Products...),
		productsBySubtype:    productsBySubtype,
		bestFactoryPositions: bestFactoryPositions,
		rng:                  rng,
		maxIterationTime:     maxIterationTime,
		oracle:               oracle,
		logger:               logger,
	}, nil
}

// NumSolutions returns how many candidate layouts have been fully
// simulated so far (across all Next() calls).
func (s *Solver) NumSolutions() int { return s.numSolutions }

type factoryResourcePair struct {
	factoryID uint64
	resource  uint8
}

// Next runs randomized iterations until one produces a board that scores
// above zero, or the time budget for this call is exhausted. Grounded on
// original_source/solver/src/solve.rs's Iterator impl: that source resets
// its best-so-far solution to None at the top of every call and only ever
// assigns it immediately before an unconditional return, so the "only
// return if it beats the prior best" branch can never execute — the
// effective, reachable behavior is "return the first score>0 board found",
// which is what this port implements. See DESIGN.md.
func (s *Solver) Next() *Result {
	deadline := time.Now().Add(s.maxIterationTime)

iterate:
	for {
		if time.Now().After(deadline) {
			return nil
		}

		layer := s.originalBoard.Layer()

		products := append([]model.Product(nil), s.products...)
		s.rng.Shuffle(len(products), func(i, j int) { products[i], products[j] = products[j], products[i] })

		var factoryIDs []uint64

		for _, product := range products {
			if s.rng.Intn(probabilityFactorySkipDen) < probabilityFactorySkipNum {
				continue
			}

			wp := s.bestFactoryPositions[product.Subtype]
			if len(wp.positions) == 0 {
				continue iterate
			}

			placed := false
			for attempt := 0; attempt < numMaxFactoryPlacements; attempt++ {
				loc := wp.positions[sampleWeighted(s.rng, wp.weights)]
				factory := object.NewFactory(loc.X, loc.Y, product.Subtype)
				if layer.InsertObject(factory) == nil {
					factoryIDs = append(factoryIDs, factory.ID())
					placed = true
					break
				}
			}
			if !placed {
				continue iterate
			}
		}

		if len(factoryIDs) == 0 {
			continue iterate
		}

		builtPathsByFactory := s.buildInitialPaths(layer, factoryIDs)
		if len(builtPathsByFactory) == 0 {
			continue iterate
		}

		s.buildAdditionalPaths(layer, factoryIDs, builtPathsByFactory)

		result, err := simulate.Run(s.task, layer, true, s.logger)
		if err != nil {
			continue iterate
		}
		s.numSolutions++

		if result.Score > 0 {
			return &Result{Score: result, Board: layer}
		}
	}
}

// buildInitialPaths connects every factory to a deposit of each resource it
// needs, backtracking within one combining attempt and retrying the whole
// pass (reshuffled) up to numPathCombiningIterations times. Returns an
// empty map if no combining attempt fully succeeds.
func (s *Solver) buildInitialPaths(layer *board.Board, factoryIDs []uint64) map[uint8]map[uint8]*pathfinder.Path {
	builtPathsByFactory := map[uint8]map[uint8]*pathfinder.Path{}

	shuffled := append([]uint64(nil), factoryIDs...)

combining:
	for attempt := 0; attempt < numPathCombiningIterations; attempt++ {
		s.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		for _, fid := range shuffled {
			factory, ok := layer.GetObject(fid)
			if !ok {
				continue
			}
			product, ok := s.productsBySubtype[factory.Subtype]
			if !ok {
				// Every factory was placed from a known product, so this
				// should not happen; skip it defensively rather than abort.
				continue
			}

			var resources []uint8
			for idx, amount := range product.Resources {
				if amount > 0 {
					resources = append(resources, uint8(idx))
				}
			}
			s.rng.Shuffle(len(resources), func(i, j int) { resources[i], resources[j] = resources[j], resources[i] })

			var processed []uint8
			pathsByResource := map[uint8]*pathfinder.Paths{}
			builtByResource := map[uint8]*pathfinder.Path{}

			for len(resources) > 0 {
				resource := resources[0]
				resources = resources[1:]

				if pathsByResource[resource] == nil {
					startPoints := append([]geometry.Point(nil), factory.Ingresses()...)
					for _, p := range builtByResource {
						startPoints = append(startPoints, p.AllIngresses()...)
					}
					pathsByResource[resource] = pathfinder.NewPaths(startPoints, s.depositsByType[resource], layer, s.oracle, s.rng)
				}

				found := false
				for tried := 0; ; tried++ {
					if tried >= numPathsPerFactoryAndResource {
						break
					}
					p := pathsByResource[resource].Next()
					if p == nil {
						break
					}
					if layer.TryInsertObjects(p.Objects()) == nil {
						builtByResource[resource] = p
						processed = append(processed, resource)
						found = true
						break
					}
				}

				if found {
					continue
				}

				delete(pathsByResource, resource)
				delete(builtByResource, resource)
				resources = append([]uint8{resource}, resources...)

				if len(processed) > 0 {
					prior := processed[len(processed)-1]
					processed = processed[:len(processed)-1]
					resources = append([]uint8{prior}, resources...)
				} else {
					builtPathsByFactory = map[uint8]map[uint8]*pathfinder.Path{}
					continue combining
				}
			}

			builtPathsByFactory[factory.Subtype] = builtByResource
		}

		break combining
	}

	return builtPathsByFactory
}

// buildAdditionalPaths opportunistically grows extra supply paths beyond
// the minimum needed, biased toward (factory, resource) pairs worth the
// most points, backing off a pair's weight on repeated failure.
func (s *Solver) buildAdditionalPaths(layer *board.Board, factoryIDs []uint64, builtPathsByFactory map[uint8]map[uint8]*pathfinder.Path) {
	var pairs []factoryResourcePair
	var weights []float64

	for _, fid := range factoryIDs {
		factory, ok := layer.GetObject(fid)
		if !ok {
			continue
		}
		product, ok := s.productsBySubtype[factory.Subtype]
		if !ok {
			continue
		}
		for idx, amount := range product.Resources {
			if amount <= 0 {
				continue
			}
			pairs = append(pairs, factoryResourcePair{factoryID: fid, resource: uint8(idx)})
			weights = append(weights, float64(amount)*float64(product.Points))
		}
	}

	if len(pairs) == 0 {
		return
	}

	maxFailures := len(factoryIDs) * 10
	failures := 0

	for {
		idx := sampleWeighted(s.rng, weights)
		pair := pairs[idx]

		factory, ok := layer.GetObject(pair.factoryID)
		if !ok {
			return
		}
		builtByResource := builtPathsByFactory[factory.Subtype]
		if builtByResource == nil {
			builtByResource = map[uint8]*pathfinder.Path{}
			builtPathsByFactory[factory.Subtype] = builtByResource
		}

		startPoints := append([]geometry.Point(nil), factory.Ingresses()...)
		for _, p := range builtByResource {
			startPoints = append(startPoints, p.AllIngresses()...)
		}

		paths := pathfinder.NewPaths(startPoints, s.depositsByType[pair.resource], layer, s.oracle, s.rng)

		found := false
		for i := 0; i < numAdditionalPathsPerFactoryAndResource; i++ {
			p := paths.Next()
			if p == nil {
				break
			}
			if layer.TryInsertObjects(p.Objects()) == nil {
				builtByResource[pair.resource] = p
				found = true
				break
			}
		}

		if found {
			continue
		}

		weights[idx] /= 2
		failures++
		if failures > maxFailures {
			return
		}
	}
}

// sampleWeighted draws an index from weights proportional to their value;
// falls back to a uniform draw if every weight is non-positive.
func sampleWeighted(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return rng.Intn(len(weights))
	}
	r := rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		if w > 0 {
			cum += w
		}
		if r < cum {
			return i
		}
	}
	return len(weights) - 1
}

// findPossibleFactoryPositions returns every (x, y) at which a 5x5 factory
// could plausibly be placed: a coarse pre-filter, not the authoritative
// placement check (board.CanInsertObject still runs when actually
// inserting the factory).
func findPossibleFactoryPositions(b *board.Board) []geometry.Point {
	width := int(b.Width())
	height := int(b.Height())

	var positions []geometry.Point

cells:
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if _, occupied := b.GetCell(x, y); occupied {
				continue
			}
			if x+4 >= width || y+4 >= height {
				continue
			}

			for dx := x; dx < x+5; dx++ {
				for dy := y; dy < y+5; dy++ {
					if c, ok := b.GetCell(dx, dy); ok && c.Role == object.RoleInner {
						continue cells
					}
				}
			}

			minX, minY := x, y
			if x > 0 {
				minX = x - 1
			}
			if y > 0 {
				minY = y - 1
			}

			for dx := minX; dx <= x+5; dx++ {
				for _, dy := range [2]int{minY, y + 5} {
					if c, ok := b.GetCell(dx, dy); ok && c.Role == object.RoleEgress {
						continue cells
					}
				}
			}
			for dy := minY; dy <= y+5; dy++ {
				for _, dx := range [2]int{minX, x + 5} {
					if c, ok := b.GetCell(dx, dy); ok && c.Role == object.RoleEgress {
						continue cells
					}
				}
			}

			positions = append(positions, geometry.Point{X: x, Y: y})
		}
	}

	return positions
}

// sortToBestPositionsByDeposits ranks candidate factory positions by
// the sum of Manhattan distances to the given deposits plus the summed
// absolute deviation of those distances from their mean
// (spec.md §4.6's heuristic; true oracle distance is a noted future
// improvement, not implemented here — see DESIGN.md), closest first, and
// derives a weight (1 / max(distance, 1)) per position for sampling.
func sortToBestPositionsByDeposits(positions []geometry.Point, deposits []object.Object) ([]geometry.Point, []float64) {
	type scored struct {
		distance int
		position geometry.Point
	}
	scoredPositions := make([]scored, 0, len(positions))

	for _, pos := range positions {
		distances := make([]int, 0, len(deposits))
		sum := 0
		for _, dep := range deposits {
			d := abs(pos.X-dep.X) + abs(pos.Y-dep.Y)
			distances = append(distances, d)
			sum += d
		}
		meanDistance := 0
		if len(distances) > 0 {
			meanDistance = sum / len(distances)
		}
		deviation := 0
		for _, d := range distances {
			deviation += abs(d - meanDistance)
		}
		scoredPositions = append(scoredPositions, scored{distance: sum + deviation, position: pos})
	}

	sort.Slice(scoredPositions, func(i, j int) bool {
		return scoredPositions[i].distance < scoredPositions[j].distance
	})

	sortedPositions := make([]geometry.Point, len(scoredPositions))
	weights := make([]float64, len(scoredPositions))
	for i, s := range scoredPositions {
		sortedPositions[i] = s.position
		d := s.distance
		if d < 1 {
			d = 1
		}
		weights[i] = 1.0 / float64(d)
	}
	return sortedPositions, weights
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
