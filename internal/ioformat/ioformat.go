// Package ioformat implements the solver binary's external file formats
// (spec.md §6): task/solution/combined JSON on stdin and stdout, plus the
// ASCII board dump used by --print and debug builds.
package ioformat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/perf-analysis/internal/board"
	"github.com/perf-analysis/pkg/model"
)

// OutputFormat selects the shape of the solver's stdout, per --out.
type OutputFormat string

const (
	// FormatSolution prints only the solution JSON array (the default).
	FormatSolution OutputFormat = "solution"
	// FormatCLI prints the combined task+solution array.
	FormatCLI OutputFormat = "cli"
)

// ReadInput parses data as either a bare task (an object) or a combined
// task+solution file (an array), per spec.md §6's stdin contract. The
// returned solution is nil when data held only a task.
func ReadInput(data []byte) (*model.Task, model.Solution, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		cf, err := model.ParseCliFile(data)
		if err != nil {
			return nil, nil, fmt.Errorf("ioformat: read combined input: %w", err)
		}
		return cf.Task, cf.Solution, nil
	}

	task, err := model.ParseTask(data)
	if err != nil {
		return nil, nil, fmt.Errorf("ioformat: read task input: %w", err)
	}
	return task, nil, nil
}

// ReadInputFile reads and parses ReadInput's contract from a file, or from
// stdin when path is "-".
func ReadInputFile(path string) (*model.Task, model.Solution, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}
	return ReadInput(data)
}

// ReadTaskFile reads a bare task file (a single JSON task object, not a
// combined task/solution file).
func ReadTaskFile(path string) (*model.Task, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	task, err := model.ParseTask(data)
	if err != nil {
		return nil, fmt.Errorf("ioformat: read task file %s: %w", path, err)
	}
	return task, nil
}

// ReadSolutionFile reads a bare solution file.
func ReadSolutionFile(path string) (model.Solution, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	solution, err := model.ParseSolution(data)
	if err != nil {
		return nil, fmt.Errorf("ioformat: read solution file %s: %w", path, err)
	}
	return solution, nil
}

func readFile(path string) ([]byte, error) {
	if path == "-" || path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("ioformat: read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ioformat: read file %s: %w", path, err)
	}
	return data, nil
}

// WriteOutput renders task/solution to out per format, per spec.md §6's
// stdout contract. A nil solution prints as an empty JSON array, not null.
func WriteOutput(out io.Writer, format OutputFormat, task *model.Task, solution model.Solution) error {
	if solution == nil {
		solution = model.Solution{}
	}

	var data []byte
	var err error
	switch format {
	case FormatCLI:
		data, err = (&model.CliFile{Task: task, Solution: solution}).ToJSON()
	default:
		data, err = solution.MarshalIndent()
	}
	if err != nil {
		return fmt.Errorf("ioformat: write output: %w", err)
	}

	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("ioformat: write output: %w", err)
	}
	_, err = fmt.Fprintln(out)
	return err
}

// PrintBoard writes b's ASCII dump to out, per spec.md §6's --print format.
func PrintBoard(out io.Writer, b *board.Board) error {
	_, err := fmt.Fprintln(out, b.String())
	return err
}
