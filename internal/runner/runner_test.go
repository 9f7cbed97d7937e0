package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perf-analysis/internal/board"
	"github.com/perf-analysis/internal/distance"
	"github.com/perf-analysis/internal/object"
	"github.com/perf-analysis/internal/solve"
	"github.com/perf-analysis/pkg/model"
)

func uint8p(v uint8) *uint8 { return &v }

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

func TestRunSingleThreadedWithSeedReturnsPositiveScore(t *testing.T) {
	task := chainTask(20)
	b, err := landscapeBoard(task)
	require.NoError(t, err)
	oracle := distance.NewOracle()

	seed := uint64(7)
	cfg := Config{NumWorkers: 1, Runtime: 300 * time.Millisecond, Seed: &seed}

	result := Run(context.Background(), task, b, oracle, cfg, nil)
	if result != nil {
		assert.Greater(t, result.Score.Score, uint32(0))
	}
}

func TestRunSingleThreadedCallsOnImprovementWithSeedAndElapsed(t *testing.T) {
	task := chainTask(20)
	b, err := landscapeBoard(task)
	require.NoError(t, err)
	oracle := distance.NewOracle()

	seed := uint64(11)
	var calls int
	var lastSeed uint64
	cfg := Config{
		NumWorkers: 1,
		Runtime:    300 * time.Millisecond,
		Seed:       &seed,
		OnImprovement: func(result *solve.Result, resultSeed uint64, elapsed time.Duration) {
			calls++
			lastSeed = resultSeed
			assert.NotNil(t, result)
			assert.GreaterOrEqual(t, elapsed, time.Duration(0))
		},
	}

	result := Run(context.Background(), task, b, oracle, cfg, nil)
	if result != nil {
		assert.Greater(t, calls, 0)
		assert.Equal(t, seed, lastSeed)
	}
}

func TestRunMultiThreadedReturnsWithinBudget(t *testing.T) {
	task := chainTask(20)
	b, err := landscapeBoard(task)
	require.NoError(t, err)
	oracle := distance.NewOracle()

	seed := uint64(3)
	cfg := Config{NumWorkers: 4, Runtime: 400 * time.Millisecond, Seed: &seed}

	start := time.Now()
	result := Run(context.Background(), task, b, oracle, cfg, nil)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2*time.Second, "runner should respect its runtime budget")
	if result != nil {
		assert.Greater(t, result.Score.Score, uint32(0))
	}
}

func TestRunSingleThreadedStopsOnContextCancel(t *testing.T) {
	task := chainTask(20)
	b, err := landscapeBoard(task)
	require.NoError(t, err)
	oracle := distance.NewOracle()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{NumWorkers: 1, Runtime: 5 * time.Second}
	result := Run(ctx, task, b, oracle, cfg, nil)
	assert.Nil(t, result)
}

func TestRollingAverageAccumulates(t *testing.T) {
	r := newRollingAverage()
	r.add(10 * time.Millisecond)
	r.add(20 * time.Millisecond)
	assert.Equal(t, 15*time.Millisecond, r.get())
}
