package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeighbours(t *testing.T) {
	got := Neighbours(3, 4)
	assert.Equal(t, [4]Point{{2, 4}, {4, 4}, {3, 3}, {3, 5}}, got)
}

func TestNeighboursOfMatchesNeighbours(t *testing.T) {
	assert.Equal(t, Neighbours(1, 2), NeighboursOf(Point{X: 1, Y: 2}))
}

func TestManhattanDistance(t *testing.T) {
	assert.Equal(t, 7, ManhattanDistance(Point{0, 0}, Point{3, 4}))
	assert.Equal(t, 0, ManhattanDistance(Point{5, 5}, Point{5, 5}))
}

func TestInBounds(t *testing.T) {
	assert.True(t, InBounds(Point{0, 0}, 10, 10))
	assert.True(t, InBounds(Point{9, 9}, 10, 10))
	assert.False(t, InBounds(Point{-1, 0}, 10, 10))
	assert.False(t, InBounds(Point{10, 0}, 10, 10))
}
