// Package board implements the layered grid container of spec.md §4.1:
// placement validation, cell lookup, and the content-addressed hash the
// distance oracle and solver use as a cache key.
//
// Grounded on original_source/model/src/map.rs; the Rust `Arc<Map>` lower
// layer becomes a plain `*Board` pointer here — Go's GC makes sharing an
// immutable lower layer across many branching search states safe without
// reference counting.
package board

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/perf-analysis/internal/geometry"
	"github.com/perf-analysis/internal/object"
)

// Board holds the objects and occupied cells of one search branch. A board
// may be "layered" over a lower board: lookups fall through to the lower
// layer, but mutation only ever touches this layer. Branching the search
// clones neither layer — it allocates a new, empty top layer over the
// existing one.
type Board struct {
	lower  *Board
	width  uint8
	height uint8
	cells  map[geometry.Point]object.Cell
	objs   map[uint64]object.Object
}

// New creates a ground-layer board and inserts the given objects, in
// order. Returns an error naming the first object that cannot be placed.
func New(width, height uint8, objects []object.Object) (*Board, error) {
	b := &Board{width: width, height: height, cells: map[geometry.Point]object.Cell{}, objs: map[uint64]object.Object{}}
	for _, o := range objects {
		if err := b.InsertObject(o); err != nil {
			return nil, fmt.Errorf("board: cannot build from objects: %w", err)
		}
	}
	return b, nil
}

// Layer returns a new, empty layer on top of b. Objects inserted into the
// result do not affect b; lookups on the result fall through to b.
func (b *Board) Layer() *Board {
	return &Board{lower: b, width: b.width, height: b.height, cells: map[geometry.Point]object.Cell{}, objs: map[uint64]object.Object{}}
}

// Width returns the board's fixed width.
func (b *Board) Width() uint8 { return b.width }

// Height returns the board's fixed height.
func (b *Board) Height() uint8 { return b.height }

// GetCell returns the cell at (x, y), falling through to lower layers.
func (b *Board) GetCell(x, y int) (object.Cell, bool) {
	if c, ok := b.cells[geometry.Point{X: x, Y: y}]; ok {
		return c, true
	}
	if b.lower != nil {
		return b.lower.GetCell(x, y)
	}
	return object.Cell{}, false
}

// GetObject returns the object with the given id, falling through to lower
// layers.
func (b *Board) GetObject(id uint64) (object.Object, bool) {
	if o, ok := b.objs[id]; ok {
		return o, true
	}
	if b.lower != nil {
		return b.lower.GetObject(id)
	}
	return object.Object{}, false
}

// GetObjects returns every object in this layer only (not lower layers) —
// used when enumerating what a single search branch added.
func (b *Board) GetObjects() []object.Object {
	out := make([]object.Object, 0, len(b.objs))
	for _, o := range b.objs {
		out = append(out, o)
	}
	return out
}

// ContainsObject reports whether the object id is present in this layer or
// any lower layer.
func (b *Board) ContainsObject(id uint64) bool {
	if _, ok := b.objs[id]; ok {
		return true
	}
	if b.lower != nil {
		return b.lower.ContainsObject(id)
	}
	return false
}

// IsEmptyAt reports whether (x, y) is in bounds and unoccupied.
func (b *Board) IsEmptyAt(x, y int) bool {
	if x < 0 || y < 0 || x >= int(b.width) || y >= int(b.height) {
		return false
	}
	_, occupied := b.GetCell(x, y)
	return !occupied
}

// InsertObject validates and inserts an object into this layer.
func (b *Board) InsertObject(o object.Object) error {
	id := o.ID()
	if b.ContainsObject(id) {
		return nil
	}
	if err := b.CanInsertObject(o); err != nil {
		return err
	}
	for _, c := range o.Cells() {
		b.cells[c.Point] = c.Cell
	}
	b.objs[id] = o
	return nil
}

// InsertObjectUnchecked inserts without calling CanInsertObject. Reports
// whether the object was newly inserted (false if already present).
func (b *Board) InsertObjectUnchecked(o object.Object) bool {
	id := o.ID()
	if _, ok := b.objs[id]; ok {
		return false
	}
	for _, c := range o.Cells() {
		b.cells[c.Point] = c.Cell
	}
	b.objs[id] = o
	return true
}

// TryInsertObjects inserts every object in order, or none at all: if any
// insert fails, every object inserted so far by this call is rolled back.
func (b *Board) TryInsertObjects(objects []object.Object) error {
	inserted := 0
	for _, o := range objects {
		if err := b.InsertObject(o); err != nil {
			for _, done := range objects[:inserted] {
				b.removeObject(done)
			}
			return err
		}
		inserted++
	}
	return nil
}

func (b *Board) removeObject(o object.Object) {
	id := o.ID()
	if _, ok := b.objs[id]; !ok {
		return
	}
	delete(b.objs, id)
	for _, c := range o.Cells() {
		delete(b.cells, c.Point)
	}
}

// CanInsertObject reports whether o may be inserted into this layer,
// checking bounds, overlap, and the ingress/egress adjacency invariants of
// spec.md §3 against this layer and every lower layer.
func (b *Board) CanInsertObject(o object.Object) error {
	if b.ContainsObject(o.ID()) {
		return nil
	}

	cells := o.Cells()
	for _, c := range cells {
		p := c.Point
		if p.X < 0 || p.Y < 0 || p.X >= int(b.width) || p.Y >= int(b.height) {
			return fmt.Errorf("board: cell %v out of bounds", p)
		}
		if old, occupied := b.GetCell(p.X, p.Y); occupied {
			sameConveyorOverlap := old.Role == object.RoleInner && old.Kind == object.KindConveyor &&
				c.Cell.Role == object.RoleInner && c.Cell.Kind == object.KindConveyor
			if !sameConveyorOverlap {
				return fmt.Errorf("board: cannot place %v over %v at %v", c.Cell.Kind, old.Kind, p)
			}
		}
	}

	// An ingress (other than a mine's) may not neighbour a deposit's egress.
	if o.Kind != object.KindMine {
		for _, ing := range o.Ingresses() {
			for _, n := range geometry.NeighboursOf(ing) {
				if c, ok := b.GetCell(n.X, n.Y); ok && c.Role == object.RoleEgress && c.Kind == object.KindDeposit {
					return fmt.Errorf("board: ingress at %v touches a deposit's egress", ing)
				}
			}
		}
	}

	// A mine/conveyor/combiner's egress may not neighbour more than one ingress.
	if o.Kind == object.KindConveyor || o.Kind == object.KindCombiner || o.Kind == object.KindMine {
		if eg, ok := o.Egress(); ok {
			count := 0
			for _, n := range geometry.NeighboursOf(eg) {
				if c, ok := b.GetCell(n.X, n.Y); ok && c.Role == object.RoleIngress {
					count++
				}
			}
			if count >= 2 {
				return fmt.Errorf("board: egress at %v touches multiple ingresses", eg)
			}
		}
	}

	// An ingress may not neighbour an egress that is already connected to
	// another ingress.
	for _, ing := range o.Ingresses() {
		for _, n := range geometry.NeighboursOf(ing) {
			c, ok := b.GetCell(n.X, n.Y)
			if !ok || c.Role != object.RoleEgress {
				continue
			}
			connected := 0
			for _, n2 := range geometry.NeighboursOf(n) {
				if c2, ok := b.GetCell(n2.X, n2.Y); ok && c2.Role == object.RoleIngress {
					connected++
				}
			}
			if connected >= 1 {
				return fmt.Errorf("board: ingress at %v touches an exgress already connected to another ingress", ing)
			}
		}
	}

	return nil
}

// Hash folds every cell of the board (across all layers) into a single
// deterministic value, used as the distance-oracle cache key (spec.md §4.3).
func (b *Board) Hash() uint64 {
	h := xxhash.New()
	var buf [3]byte
	for x := 0; x <= int(b.width); x++ {
		for y := 0; y <= int(b.height); y++ {
			c, ok := b.GetCell(x, y)
			if !ok {
				buf[0] = 0
				h.Write(buf[:1])
				continue
			}
			buf[0] = 1
			buf[1] = byte(c.Role)
			buf[2] = byte(c.Kind)
			h.Write(buf[:3])
		}
	}
	return h.Sum64()
}

// String renders an ASCII dump of the board (spec.md §6): a header row of
// tens digits, a header row of units digits, then one row per y with a
// zero-padded row label.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteString("   ")
	for x := 0; x < int(b.width); x++ {
		fmt.Fprintf(&sb, "%d", (x/10)%10)
	}
	sb.WriteString("\n   ")
	for x := 0; x < int(b.width); x++ {
		fmt.Fprintf(&sb, "%d", x%10)
	}
	sb.WriteString("\n")

	for y := 0; y < int(b.height); y++ {
		fmt.Fprintf(&sb, "%02d ", y)
		for x := 0; x < int(b.width); x++ {
			if c, ok := b.GetCell(x, y); ok {
				sb.WriteByte(c.Char())
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
