// Package geometry provides the coordinate primitives shared by the board,
// object, distance, and path-finder packages: signed grid coordinates and
// 4-neighbor adjacency. Pure and stateless, grounded on
// original_source/model/src/coord.rs.
package geometry

// Point is a signed grid coordinate. The board is at most 100x100, but
// placement-geometry math (expanding a footprint, probing neighbours near
// the origin) transiently produces negative values before a bounds check,
// so coordinates are kept as plain ints rather than the spec's 8-bit
// wire-format width — the 8-bit packing is purely an object-id concern
// (see internal/object.ID) and does not constrain in-memory arithmetic.
type Point struct {
	X, Y int
}

// Neighbours returns the four 4-connected neighbours of (x, y) in a fixed
// order: left, right, up, down.
func Neighbours(x, y int) [4]Point {
	return [4]Point{
		{X: x - 1, Y: y},
		{X: x + 1, Y: y},
		{X: x, Y: y - 1},
		{X: x, Y: y + 1},
	}
}

// NeighboursOf is the Point-argument convenience form of Neighbours.
func NeighboursOf(p Point) [4]Point {
	return Neighbours(p.X, p.Y)
}

// ManhattanDistance returns the L1 distance between two points.
func ManhattanDistance(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// InBounds reports whether p lies within a width x height grid anchored at
// the origin.
func InBounds(p Point, width, height int) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < width && p.Y < height
}
