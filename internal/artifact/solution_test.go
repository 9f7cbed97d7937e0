package artifact

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadSolutionWritesSolutionAndBoardDump(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = UploadSolution(context.Background(), storage, "task-a", 7, []byte(`[{"type":"factory"}]`), []byte("..X.."))
	require.NoError(t, err)

	rc, err := storage.Download(context.Background(), SolutionKey("task-a", 7))
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"factory"}]`, string(data))

	rc2, err := storage.Download(context.Background(), SolutionKey("task-a", 7)+".board.txt")
	require.NoError(t, err)
	defer rc2.Close()
	dump, err := io.ReadAll(rc2)
	require.NoError(t, err)
	assert.Equal(t, "..X..", string(dump))
}

func TestUploadSolutionSkipsWhenStorageNil(t *testing.T) {
	err := UploadSolution(context.Background(), nil, "task-a", 1, []byte(`[]`), nil)
	assert.NoError(t, err)
}
