package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskRoundTrip(t *testing.T) {
	raw := []byte(`{
		"width": 10, "height": 10, "turns": 50,
		"objects": [
			{"type":"obstacle","x":0,"y":0,"width":2,"height":2},
			{"type":"deposit","x":5,"y":5,"width":3,"height":3,"subtype":0}
		],
		"products": [
			{"type":"product","subtype":0,"resources":[1,0,0,0,0,0,0,0],"points":10}
		]
	}`)

	task, err := ParseTask(raw)
	require.NoError(t, err)
	assert.Equal(t, uint8(10), task.Width)
	assert.Equal(t, uint8(10), task.Height)
	assert.Equal(t, uint32(50), task.Turns)
	require.Len(t, task.Objects, 2)
	assert.Equal(t, KindObstacle, task.Objects[0].Kind)
	assert.Equal(t, KindDeposit, task.Objects[1].Kind)
	require.Len(t, task.Products, 1)
	assert.Equal(t, uint32(10), task.Products[0].Points)

	encoded, err := task.MarshalIndent()
	require.NoError(t, err)

	roundTripped, err := ParseTask(encoded)
	require.NoError(t, err)
	assert.Equal(t, task, roundTripped)
}

func TestParseSolutionRoundTrip(t *testing.T) {
	raw := []byte(`[{"type":"mine","x":1,"y":1,"subtype":0},{"type":"factory","x":4,"y":4,"subtype":2}]`)

	sol, err := ParseSolution(raw)
	require.NoError(t, err)
	require.Len(t, sol, 2)
	assert.Equal(t, KindMine, sol[0].Kind)
	assert.Equal(t, KindFactory, sol[1].Kind)

	encoded, err := sol.MarshalIndent()
	require.NoError(t, err)

	roundTripped, err := ParseSolution(encoded)
	require.NoError(t, err)
	assert.Equal(t, sol, roundTripped)
}

func TestParseCliFileSplitsTaskAndSolution(t *testing.T) {
	raw := []byte(`[
		{"width":5,"height":5,"turns":10,"objects":[],"products":[]},
		[{"type":"mine","x":1,"y":1,"subtype":0}]
	]`)

	cf, err := ParseCliFile(raw)
	require.NoError(t, err)
	require.NotNil(t, cf.Task)
	assert.Equal(t, uint8(5), cf.Task.Width)
	require.Len(t, cf.Solution, 1)
	assert.Equal(t, KindMine, cf.Solution[0].Kind)
}

func TestParseCliFileOrderIndependent(t *testing.T) {
	raw := []byte(`[
		[{"type":"factory","x":1,"y":1,"subtype":0}],
		{"width":5,"height":5,"turns":10,"objects":[],"products":[]}
	]`)

	cf, err := ParseCliFile(raw)
	require.NoError(t, err)
	require.NotNil(t, cf.Task)
	require.Len(t, cf.Solution, 1)
}
