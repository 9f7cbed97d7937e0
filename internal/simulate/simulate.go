// Package simulate implements the turn-based production simulator of
// spec.md §4.5: pulling resources from mines to factories each turn,
// pushing deposit stock into mines, and running factory production.
//
// Grounded on original_source/simulator/src/lib.rs.
package simulate

import (
	"fmt"

	"github.com/perf-analysis/internal/board"
	"github.com/perf-analysis/internal/geometry"
	"github.com/perf-analysis/internal/object"
	"github.com/perf-analysis/pkg/errors"
	"github.com/perf-analysis/pkg/model"
	"github.com/perf-analysis/pkg/utils"
)

// Result is the outcome of simulating a task/solution pair: the final
// score and the turn on which it was reached.
type Result struct {
	Score uint32
	Turn  uint32
}

// Compare returns a positive number if r is the better result, negative if
// other is better, and zero if they tie exactly. A higher score always
// wins; a tied score prefers whichever result reached it on an earlier
// turn, per original_source/simulator/src/lib.rs's Ord impl.
func (r Result) Compare(other Result) int {
	if r.Score != other.Score {
		if r.Score > other.Score {
			return 1
		}
		return -1
	}
	if r.Turn != other.Turn {
		if r.Turn < other.Turn {
			return 1
		}
		return -1
	}
	return 0
}

// BuildBoard overlays a solution on a task's landscape, producing the
// board the simulator runs against. Grounded on
// original_source/simulator/src/lib.rs's generate_map.
func BuildBoard(task *model.Task, solution model.Solution) (*board.Board, error) {
	objs := make([]object.Object, 0, len(task.Objects)+len(solution))
	for _, m := range task.Objects {
		o, err := object.FromModelObject(m)
		if err != nil {
			return nil, fmt.Errorf("simulate: build board: %w", err)
		}
		objs = append(objs, o)
	}
	for _, m := range solution {
		o, err := object.FromModelObject(m)
		if err != nil {
			return nil, fmt.Errorf("simulate: build board: %w", err)
		}
		objs = append(objs, o)
	}
	return board.New(task.Width, task.Height, objs)
}

// queueEntry is one object awaiting its turn in the pull-phase BFS.
type queueEntry struct {
	id  uint64
	obj object.Object
}

// Run simulates task turns of production on b, reporting per-turn resource
// movement through logger when quiet is false. Returns an error if the
// board violates the "only a mine may touch a deposit's egress" invariant
// — board.CanInsertObject should already prevent this, so its appearance
// here signals a board built outside the normal placement path.
func Run(task *model.Task, b *board.Board, quiet bool, logger utils.Logger) (Result, error) {
	productsBySubtype := make(map[uint8]model.Product, len(task.Products))
	for _, p := range task.Products {
		productsBySubtype[p.Subtype] = p
	}

	allObjects := b.GetObjects()
	objectsByID := make(map[uint64]object.Object, len(allObjects))
	for _, o := range allObjects {
		objectsByID[o.ID()] = o
	}

	// Deposit stock: width * height * 5, per spec.md's supplemented detail.
	stock := map[uint64]uint32{}
	// Per-object resource distribution buckets (8 resource types).
	distribution := map[uint64]*[8]uint32{}
	for _, o := range allObjects {
		bucket := [8]uint32{}
		distribution[o.ID()] = &bucket
		if o.Kind == object.KindDeposit {
			stock[o.ID()] = uint32(o.Width) * uint32(o.Height) * 5
		}
	}

	var factoryQueue []queueEntry
	var deposits []object.Object
	for _, o := range allObjects {
		switch o.Kind {
		case object.KindFactory:
			factoryQueue = append(factoryQueue, queueEntry{id: o.ID(), obj: o})
		case object.KindDeposit:
			deposits = append(deposits, o)
		}
	}

	var score uint32
	var bestTurn uint32

	for turn := uint32(1); turn <= task.Turns; turn++ {
		// START OF TURN: pull resources from mines toward factories,
		// cascading backward through conveyors and combiners.
		queue := append([]queueEntry(nil), factoryQueue...)
		for len(queue) > 0 {
			entry := queue[0]
			queue = queue[1:]

			if entry.obj.Kind == object.KindDeposit {
				continue
			}

			incoming := [8]uint32{}
			for _, ing := range entry.obj.Ingresses() {
				for _, n := range geometry.NeighboursOf(ing) {
					cell, ok := b.GetCell(n.X, n.Y)
					if !ok || cell.Role != object.RoleEgress {
						continue
					}
					outgoingID := cell.OwnerID
					outgoingBucket := distribution[outgoingID]
					incomingBucket := distribution[entry.id]
					if outgoingBucket == nil || incomingBucket == nil {
						continue
					}
					for i := 0; i < 8; i++ {
						var amount uint32
						if entry.obj.Kind == object.KindMine {
							amount = min32(outgoingBucket[i], 3)
						} else {
							amount = outgoingBucket[i]
						}
						incomingBucket[i] += amount
						outgoingBucket[i] -= amount
						incoming[i] += amount
					}

					outgoingObj, ok := objectsByID[outgoingID]
					if ok {
						queue = append(queue, queueEntry{id: outgoingID, obj: outgoingObj})
					}
				}
			}

			if !quiet && logger != nil && anyPositive(incoming) {
				logger.Debug(fmt.Sprintf("turn %d (start): object %d accepts %v, holds %v", turn, entry.id, incoming, *distribution[entry.id]))
			}
		}

		// END OF TURN: deposits push stock into adjacent mines.
		for _, dep := range deposits {
			resourceType := int(dep.Subtype)
			visited := map[geometry.Point]struct{}{}
			for _, eg := range dep.Egresses() {
				for _, n := range geometry.NeighboursOf(eg) {
					if _, seen := visited[n]; seen {
						continue
					}
					visited[n] = struct{}{}

					cell, ok := b.GetCell(n.X, n.Y)
					if !ok || cell.Role != object.RoleIngress {
						continue
					}
					receiving, ok := objectsByID[cell.OwnerID]
					if !ok {
						continue
					}
					if receiving.Kind != object.KindMine {
						return Result{}, errors.Wrap(errors.CodeStructuralAnomaly,
							fmt.Sprintf("non-mine object touches deposit egress at %v", n), nil)
					}

					amount := min32(stock[dep.ID()], 3)
					distribution[dep.ID()][resourceType] += amount
					stock[dep.ID()] -= amount

					if amount > 0 && !quiet && logger != nil {
						logger.Debug(fmt.Sprintf("turn %d (end): mine at (%d,%d) takes %dx%d, %dx%d available", turn, receiving.X, receiving.Y, amount, resourceType, stock[dep.ID()], resourceType))
					}
				}
			}
		}

		// END OF TURN: factories produce as many times as their
		// resources allow.
		for _, o := range allObjects {
			if o.Kind != object.KindFactory {
				continue
			}
			product, ok := productsBySubtype[o.Subtype]
			if !ok {
				return Result{}, errors.Wrap(errors.CodeStructuralAnomaly,
					fmt.Sprintf("no product known for factory subtype %d", o.Subtype), nil)
			}
			bucket := distribution[o.ID()]
			for {
				canProduce := true
				for i, need := range product.Resources {
					if int(bucket[i]) < need {
						canProduce = false
						break
					}
				}
				if !canProduce {
					break
				}
				score += product.Points
				for i, need := range product.Resources {
					bucket[i] -= uint32(need)
				}
				bestTurn = turn
				if !quiet && logger != nil {
					logger.Debug(fmt.Sprintf("turn %d (end): factory at (%d,%d) produces %d (%d points)", turn, o.X, o.Y, o.Subtype, product.Points))
				}
			}
		}
	}

	return Result{Score: score, Turn: bestTurn}, nil
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func anyPositive(values [8]uint32) bool {
	for _, v := range values {
		if v > 0 {
			return true
		}
	}
	return false
}
