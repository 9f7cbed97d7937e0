package solve

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perf-analysis/internal/board"
	"github.com/perf-analysis/internal/distance"
	"github.com/perf-analysis/internal/geometry"
	"github.com/perf-analysis/internal/object"
	"github.com/perf-analysis/pkg/model"
)

func uint8p(v uint8) *uint8 { return &v }

func TestFindPossibleFactoryPositionsExcludesOccupiedAndBorder(t *testing.T) {
	deposit := object.NewDeposit(0, 0, 2, 2, 0)
	b, err := board.New(12, 12, []object.Object{deposit})
	require.NoError(t, err)

	positions := findPossibleFactoryPositions(b)
	require.NotEmpty(t, positions)

	for _, p := range positions {
		// No candidate footprint may overlap the deposit's own cells.
		for dx := p.X; dx < p.X+5; dx++ {
			for dy := p.Y; dy < p.Y+5; dy++ {
				c, occupied := b.GetCell(dx, dy)
				if occupied {
					assert.NotEqual(t, object.RoleInner, c.Role, "position %v footprint overlaps an inner cell", p)
				}
			}
		}
	}
}

func TestFindPossibleFactoryPositionsSkipsOutOfBounds(t *testing.T) {
	b, err := board.New(6, 6, nil)
	require.NoError(t, err)

	positions := findPossibleFactoryPositions(b)
	for _, p := range positions {
		assert.Less(t, p.X+4, 6)
		assert.Less(t, p.Y+4, 6)
	}
}

func TestSortToBestPositionsByDepositsOrdersByDistance(t *testing.T) {
	deposit := object.NewDeposit(0, 0, 1, 1, 0)
	positions := []geometry.Point{{X: 5, Y: 5}, {X: 1, Y: 1}, {X: 9, Y: 9}}

	sorted, weights := sortToBestPositionsByDeposits(positions, []object.Object{deposit})
	require.Len(t, sorted, 3)
	require.Len(t, weights, 3)

	assert.Equal(t, geometry.Point{X: 1, Y: 1}, sorted[0], "closest position should sort first")
	assert.Equal(t, geometry.Point{X: 9, Y: 9}, sorted[2], "farthest position should sort last")
	assert.Greater(t, weights[0], weights[2], "closer positions get a larger sampling weight")
}

func TestSortToBestPositionsByDepositsHandlesNoDeposits(t *testing.T) {
	positions := []geometry.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}
	sorted, weights := sortToBestPositionsByDeposits(positions, nil)
	assert.Len(t, sorted, 2)
	assert.Len(t, weights, 2)
}

func TestSampleWeightedStaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	weights := []float64{1, 2, 3, 0}
	for i := 0; i < 100; i++ {
		idx := sampleWeighted(rng, weights)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, len(weights))
	}
}

func TestSampleWeightedFallsBackToUniformWhenAllZero(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	weights := []float64{0, 0, 0}
	idx := sampleWeighted(rng, weights)
	assert.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, len(weights))
}

// landscapeBoard builds a board from task.Objects only, with no solution
// overlay — the starting point NewSolver searches from.
func landscapeBoard(task *model.Task) (*board.Board, error) {
	objs := make([]object.Object, 0, len(task.Objects))
	for _, m := range task.Objects {
		o, err := object.FromModelObject(m)
		if err != nil {
			return nil, err
		}
		objs = append(objs, o)
	}
	return board.New(task.Width, task.Height, objs)
}

func chainTask(turns uint32) *model.Task {
	return &model.Task{
		Width:  10,
		Height: 10,
		Turns:  turns,
		Objects: []model.Object{
			{Kind: model.KindDeposit, X: 0, Y: 1, Width: uint8p(1), Height: uint8p(1), Subtype: uint8p(0)},
		},
		Products: []model.Product{
			{Kind: "product", Subtype: 0, Resources: [8]int{1, 0, 0, 0, 0, 0, 0, 0}, Points: 10},
		},
	}
}

func TestNewSolverBuildsPositionsPerProduct(t *testing.T) {
	task := chainTask(20)
	b, err := landscapeBoard(task)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	oracle := distance.NewOracle()

	s, err := NewSolver(task, b, rng, 200*time.Millisecond, oracle, nil)
	require.NoError(t, err)

	wp, ok := s.bestFactoryPositions[0]
	require.True(t, ok)
	assert.NotEmpty(t, wp.positions)
	assert.Len(t, wp.weights, len(wp.positions))
}

func TestNextEventuallyReturnsOrTimesOutCleanly(t *testing.T) {
	task := chainTask(30)
	b, err := landscapeBoard(task)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(4))
	oracle := distance.NewOracle()

	s, err := NewSolver(task, b, rng, 300*time.Millisecond, oracle, nil)
	require.NoError(t, err)

	result := s.Next()
	if result != nil {
		assert.Greater(t, result.Score.Score, uint32(0))
		assert.NotNil(t, result.Board)
	}
}
