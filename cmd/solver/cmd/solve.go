package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/perf-analysis/internal/artifact"
	"github.com/perf-analysis/internal/board"
	"github.com/perf-analysis/internal/distance"
	"github.com/perf-analysis/internal/ioformat"
	"github.com/perf-analysis/internal/object"
	"github.com/perf-analysis/internal/runledger"
	"github.com/perf-analysis/internal/runner"
	"github.com/perf-analysis/internal/solve"
	"github.com/perf-analysis/pkg/config"
	"github.com/perf-analysis/pkg/model"
	"github.com/perf-analysis/pkg/writer"
)

var (
	inputPath   string
	outputPath  string
	timeSecs    int
	cores       int
	seedFlag    uint64
	hasSeed     bool
	printStats  bool
	printBoard  bool
	outFormat   string
	archivePath string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a task and print the best solution found",
	Long: `Read a task (or combined task+solution) JSON file, search for the
highest-scoring factory/mine/conveyor/combiner layout within the given
time and turn budget, and print the resulting solution.`,
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)

	solveCmd.Flags().StringVarP(&inputPath, "input", "i", "-", "Input task/combined file (\"-\" for stdin)")
	solveCmd.Flags().StringVarP(&outputPath, "output", "o", "-", "Output file (\"-\" for stdout)")
	solveCmd.Flags().IntVar(&timeSecs, "time", 0, "Time budget in seconds (default: task.time or 100)")
	solveCmd.Flags().IntVar(&cores, "cores", 0, "Number of worker goroutines (default: available parallelism)")
	solveCmd.Flags().Uint64Var(&seedFlag, "seed", 0, "RNG seed (default: fresh entropy)")
	solveCmd.Flags().BoolVar(&printStats, "stats", false, "Print score/turn statistics to stderr")
	solveCmd.Flags().BoolVar(&printBoard, "print", false, "Print the ASCII board dump of the solution to stderr")
	solveCmd.Flags().StringVar(&outFormat, "out", "solution", "Output format: solution|cli")
	solveCmd.Flags().StringVar(&archivePath, "archive", "", "Write a gzipped task+solution+stats snapshot to this path")
}

func runSolve(cmd *cobra.Command, args []string) error {
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Name == "seed" {
			hasSeed = true
		}
	})

	if outFormat != string(ioformat.FormatSolution) && outFormat != string(ioformat.FormatCLI) {
		return fmt.Errorf("solve: invalid --out %q (valid: solution, cli)", outFormat)
	}

	log := GetLogger()
	c := GetConfig()

	task, _, err := ioformat.ReadInputFile(inputPath)
	if err != nil {
		return err
	}

	landscape := make([]object.Object, 0, len(task.Objects))
	for _, m := range task.Objects {
		o, err := object.FromModelObject(m)
		if err != nil {
			return fmt.Errorf("solve: task landscape: %w", err)
		}
		landscape = append(landscape, o)
	}

	b, err := board.New(task.Width, task.Height, landscape)
	if err != nil {
		return fmt.Errorf("solve: build board: %w", err)
	}
	taskHash := fmt.Sprintf("%016x", b.Hash())

	budget := resolveBudget(task)
	numWorkers := resolveWorkers(c.Solver)

	var seedPtr *uint64
	if hasSeed {
		seedPtr = &seedFlag
	} else if c.Solver.Seed != 0 {
		seedPtr = &c.Solver.Seed
	}

	var ledger *runledger.Ledger
	var storage artifact.Storage
	if c.Solver.LedgerOn {
		ledger, err = runledger.Open(c.Database)
		if err != nil {
			return fmt.Errorf("solve: open run ledger: %w", err)
		}
		defer ledger.Close()
	}
	if c.Solver.ArtifactOn {
		if err := c.EnsureStorageDir(); err != nil {
			return fmt.Errorf("solve: ensure storage dir: %w", err)
		}
		storage, err = artifact.NewStorage(&c.Storage)
		if err != nil {
			return fmt.Errorf("solve: open artifact storage: %w", err)
		}
	}

	runCfg := runner.Config{
		NumWorkers: numWorkers,
		Runtime:    budget,
		Seed:       seedPtr,
	}
	if ledger != nil || storage != nil {
		runCfg.OnImprovement = func(result *solve.Result, seed uint64, elapsed time.Duration) {
			solutionJSON, err := modelSolution(result.Board).MarshalIndent()
			if err != nil {
				log.Warn("solve: marshal improvement for persistence: %v", err)
				return
			}
			ctx := context.Background()
			if ledger != nil {
				entry := runledger.Entry{
					TaskHash:     taskHash,
					Seed:         seed,
					Score:        result.Score.Score,
					Turn:         result.Score.Turn,
					Duration:     elapsed,
					SolutionJSON: solutionJSON,
				}
				if err := ledger.RecordImprovement(ctx, entry); err != nil {
					log.Warn("solve: record improvement: %v", err)
				}
			}
			if storage != nil {
				dump := []byte(result.Board.String())
				if err := artifact.UploadSolution(ctx, storage, taskHash, seed, solutionJSON, dump); err != nil {
					log.Warn("solve: upload improvement: %v", err)
				}
			}
		}
	}

	ctx := context.Background()
	oracle := distance.NewOracle()
	result := runner.Run(ctx, task, b, oracle, runCfg, log)

	var solution model.Solution
	var resultBoard *board.Board
	if result != nil {
		solution = modelSolution(result.Board)
		resultBoard = result.Board
	} else {
		solution = model.Solution{}
	}

	out := os.Stdout
	if outputPath != "-" && outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("solve: open output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := ioformat.WriteOutput(out, ioformat.OutputFormat(outFormat), task, solution); err != nil {
		return err
	}

	if printStats {
		if result != nil {
			fmt.Fprintf(os.Stderr, "score=%d turn=%d\n", result.Score.Score, result.Score.Turn)
		} else {
			fmt.Fprintln(os.Stderr, "score=0 turn=0 (no solution found)")
		}
	}
	if printBoard && resultBoard != nil {
		if err := ioformat.PrintBoard(os.Stderr, resultBoard); err != nil {
			return err
		}
	}

	if archivePath != "" {
		record := archiveRecord{Task: task, Solution: solution}
		if result != nil {
			record.Score = result.Score.Score
			record.Turn = result.Score.Turn
		}
		stats, err := writer.NewGzipWriter[archiveRecord]().WriteToFileWithStats(record, archivePath)
		if err != nil {
			return fmt.Errorf("solve: archive: %w", err)
		}
		log.Info("solve: archived %s (%d -> %d bytes, %.1f%%)", archivePath, stats.JSONSize, stats.CompressedSize, stats.CompressionPct)
	}

	return nil
}

// archiveRecord is the --archive snapshot: the task, the solution found for
// it, and the score/turn the solver reported, bundled for later replay or
// comparison.
type archiveRecord struct {
	Task     *model.Task    `json:"task"`
	Solution model.Solution `json:"solution"`
	Score    uint32         `json:"score"`
	Turn     uint32         `json:"turn"`
}

// modelSolution extracts the wire-format Solution from a solved board,
// dropping the landscape objects (obstacle/deposit) the task already
// describes.
func modelSolution(b *board.Board) model.Solution {
	objs := b.GetObjects()
	solution := make(model.Solution, 0, len(objs))
	for _, o := range objs {
		if o.Kind == object.KindObstacle || o.Kind == object.KindDeposit {
			continue
		}
		solution = append(solution, o.ToModelObject())
	}
	return solution
}

// resolveBudget picks the time budget per spec.md §6: --time, else
// task.time, else 100 seconds.
func resolveBudget(task *model.Task) time.Duration {
	if timeSecs > 0 {
		return time.Duration(timeSecs) * time.Second
	}
	if task.Time != nil && *task.Time > 0 {
		return time.Duration(*task.Time) * time.Second
	}
	return 100 * time.Second
}

// resolveWorkers picks the worker count per spec.md §6: --cores, else
// config, else available parallelism.
func resolveWorkers(s config.SolverConfig) int {
	if cores > 0 {
		return cores
	}
	if s.Cores > 0 {
		return s.Cores
	}
	return runtime.NumCPU()
}
