// Package pathfinder implements the shared-tail Path representation and the
// best-first path-finder of spec.md §4.4.
//
// Grounded on original_source/solver/src/path.rs and
// original_source/solver/src/paths.rs. The Rust Path uses `Rc<Path>` tails
// so branching a path is O(1) without deep-cloning; this is expressed here
// with ordinary `*Path` pointers, since Go's garbage collector already
// makes an immutable, multiply-referenced linked structure safe to share
// across search branches without the reference-counting Rc provides.
package pathfinder

import (
	"fmt"

	"github.com/perf-analysis/internal/geometry"
	"github.com/perf-analysis/internal/object"
)

// ID is a 128-bit commutative hash of a path's object ids, represented as
// two halves since Go has no native uint128.
//
// Both halves are order-independent combinations (XOR and wrapping
// addition) of every object id, rather than original_source/solver/src/
// path.rs's `t ^= t`, which always evaluates false and so folds every
// object id into the same half. spec.md §3 asks for "a commutative hash of
// object ids" so that reordering permutations dedupe; XOR alone would
// satisfy that but collides too easily (XOR is its own inverse), so the
// second half sums each id through a finalizer mix for spread while staying
// order-independent.
type ID struct {
	Hi, Lo uint64
}

// Path is an immutable, singly-linked chain of objects with a shared tail:
// appending an object allocates one new node and reuses the rest of the
// chain. The root of the chain is an End node holding the starting
// ingresses of the search.
type Path struct {
	object    *object.Object
	tail      *Path
	ingresses []geometry.Point
}

// FromStartingPoints creates an empty path whose head ingresses are the
// given points — the search frontier's initial seeds.
func FromStartingPoints(points []geometry.Point) *Path {
	return &Path{ingresses: points}
}

// Append creates a new path with obj placed at its head, reusing tail's
// chain. Returns an error if obj's cells collide with any object already
// on the path (conveyor-over-conveyor excepted, per spec.md §3).
func Append(obj object.Object, tail *Path) (*Path, error) {
	if err := tail.checkObject(obj); err != nil {
		return nil, err
	}
	o := obj
	return &Path{object: &o, tail: tail}, nil
}

func (p *Path) checkObject(o object.Object) error {
	cells := o.Cells()
	for _, existing := range p.Objects() {
		for _, dc := range existing.Cells() {
			for _, c := range cells {
				if c.Point != dc.Point {
					continue
				}
				sameConveyorOverlap := c.Cell.Role == object.RoleInner && c.Cell.Kind == object.KindConveyor &&
					dc.Cell.Role == object.RoleInner && dc.Cell.Kind == object.KindConveyor
				if !sameConveyorOverlap {
					return fmt.Errorf("pathfinder: cannot place %v over %v at %v", o.Kind, existing.Kind, c.Point)
				}
			}
		}
	}
	return nil
}

// Heads returns the ingresses of the path's head: the current object's
// ingresses, or the starting points if the path is still empty.
func (p *Path) Heads() []geometry.Point {
	if p.object == nil {
		return p.ingresses
	}
	return p.object.Ingresses()
}

// AllIngresses returns every ingress of every object along the path.
func (p *Path) AllIngresses() []geometry.Point {
	var out []geometry.Point
	for _, o := range p.Objects() {
		out = append(out, o.Ingresses()...)
	}
	return out
}

// Objects returns the path's objects from head to tail.
func (p *Path) Objects() []object.Object {
	var out []object.Object
	for cur := p; cur != nil && cur.object != nil; cur = cur.tail {
		out = append(out, *cur.object)
	}
	return out
}

// ID computes the path's commutative content-addressed id, used to dedupe
// equivalent paths discovered via different search orders.
func (p *Path) ID() ID {
	var xorAll, sumAll uint64
	for _, o := range p.Objects() {
		id := o.ID()
		xorAll ^= id
		sumAll += mixID(id)
	}
	return ID{Hi: sumAll, Lo: xorAll}
}

// mixID spreads a single object id before folding it into ID's sum half,
// so that ids differing only slightly still land far apart (MurmurHash3's
// fmix64 finalizer).
func mixID(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}
