package artifact

import (
	"bytes"
	"context"
	"fmt"
)

// SolutionKey returns the storage key a winning solution for taskHash is
// uploaded under. One task hash may accumulate multiple uploads across
// separate solver invocations, distinguished by seed.
func SolutionKey(taskHash string, seed uint64) string {
	return fmt.Sprintf("solutions/%s/seed-%d.json", taskHash, seed)
}

// UploadSolution uploads a winning solution's JSON (and, if non-empty, its
// ASCII board dump) to storage under SolutionKey, skipping entirely when
// storage is nil (the artifact upload is optional, per SPEC_FULL.md §B).
func UploadSolution(ctx context.Context, storage Storage, taskHash string, seed uint64, solutionJSON []byte, boardDump []byte) error {
	if storage == nil {
		return nil
	}

	key := SolutionKey(taskHash, seed)
	if err := storage.Upload(ctx, key, bytes.NewReader(solutionJSON)); err != nil {
		return fmt.Errorf("artifact: upload solution: %w", err)
	}

	if len(boardDump) > 0 {
		dumpKey := key + ".board.txt"
		if err := storage.Upload(ctx, dumpKey, bytes.NewReader(boardDump)); err != nil {
			return fmt.Errorf("artifact: upload board dump: %w", err)
		}
	}

	return nil
}
