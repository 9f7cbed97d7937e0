package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/perf-analysis/internal/board"
	"github.com/perf-analysis/internal/distance"
	"github.com/perf-analysis/internal/object"
	"github.com/perf-analysis/internal/runner"
	"github.com/perf-analysis/internal/simulate"
	"github.com/perf-analysis/pkg/model"
	"github.com/perf-analysis/pkg/parallel"
)

// selftestBudget is the per-fixture solving budget: short, since the point
// is to exercise the pipeline's wiring, not to find a good layout.
const selftestBudget = 500 * time.Millisecond

// fixture is one bundled task used by the self-test. The four
// original_source regression tasks (conveyor_branch.json, test1/2.json,
// test_task_004.json) were never retrieved into this tree — the retrieval
// pack kept original_source's code and build files only, not its JSON test
// data — so this self-test instead verifies the solver/simulator wiring
// against small synthesized tasks: it solves each one, re-simulates the
// extracted solution from scratch, and checks the two runs agree. See
// DESIGN.md.
type fixture struct {
	Name string
	Task *model.Task
}

func u8(v uint8) *uint8 { return &v }

func selftestFixtures() []fixture {
	return []fixture{
		{
			Name: "empty-board",
			Task: &model.Task{Width: 10, Height: 10, Turns: 5},
		},
		{
			Name: "deposit-without-products",
			Task: &model.Task{
				Width: 10, Height: 10, Turns: 10,
				Objects: []model.Object{
					{Kind: model.KindDeposit, X: 2, Y: 2, Width: u8(2), Height: u8(2), Subtype: u8(0)},
				},
			},
		},
		{
			Name: "single-deposit-single-product",
			Task: &model.Task{
				Width: 12, Height: 12, Turns: 30,
				Objects: []model.Object{
					{Kind: model.KindDeposit, X: 1, Y: 1, Width: u8(2), Height: u8(2), Subtype: u8(0)},
					{Kind: model.KindObstacle, X: 8, Y: 8, Width: u8(1), Height: u8(1)},
				},
				Products: []model.Product{
					{Kind: "product", Subtype: 0, Resources: [8]int{1, 0, 0, 0, 0, 0, 0, 0}, Points: 10},
				},
			},
		},
	}
}

// selftestOutcome is one fixture's pass/fail record.
type selftestOutcome struct {
	Name          string
	SolverScore   simulate.Result
	ReplayScore   simulate.Result
	SolverYielded bool
	Agrees        bool
}

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the bundled fixture tasks through solve+simulate and check for consistency",
	Long: `selftest solves each bundled fixture task under a short time budget,
extracts the winning solution, re-simulates it from scratch, and verifies
the two runs agree on score and turn — a smoke test of the solve/simulate/
ioformat wiring rather than a reproduction of any specific historical score.`,
	RunE: runSelftest,
}

func init() {
	rootCmd.AddCommand(selftestCmd)
}

func runSelftest(cmd *cobra.Command, args []string) error {
	fixtures := selftestFixtures()

	pool := parallel.NewWorkerPool[fixture, selftestOutcome](parallel.DefaultPoolConfig())
	results := pool.ExecuteFunc(context.Background(), fixtures, func(ctx context.Context, f fixture) (selftestOutcome, error) {
		return runSelftestFixture(ctx, f)
	})

	failed := 0
	for _, r := range results {
		out := r.Result
		if r.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %-30s error: %v\n", out.Name, r.Error)
			continue
		}
		if !out.SolverYielded {
			fmt.Fprintf(os.Stderr, "SKIP %-30s solver yielded no candidate\n", out.Name)
			continue
		}
		if !out.Agrees {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %-30s solve={score=%d turn=%d} replay={score=%d turn=%d}\n",
				out.Name, out.SolverScore.Score, out.SolverScore.Turn, out.ReplayScore.Score, out.ReplayScore.Turn)
			continue
		}
		fmt.Fprintf(os.Stderr, "PASS %-30s score=%d turn=%d\n", out.Name, out.SolverScore.Score, out.SolverScore.Turn)
	}

	if failed > 0 {
		return fmt.Errorf("selftest: %d/%d fixtures failed", failed, len(fixtures))
	}
	return nil
}

func runSelftestFixture(ctx context.Context, f fixture) (selftestOutcome, error) {
	outcome := selftestOutcome{Name: f.Name}

	landscape := make([]object.Object, 0, len(f.Task.Objects))
	for _, m := range f.Task.Objects {
		o, err := object.FromModelObject(m)
		if err != nil {
			return outcome, fmt.Errorf("fixture %s: landscape: %w", f.Name, err)
		}
		landscape = append(landscape, o)
	}

	b, err := board.New(f.Task.Width, f.Task.Height, landscape)
	if err != nil {
		return outcome, fmt.Errorf("fixture %s: build board: %w", f.Name, err)
	}

	oracle := distance.NewOracle()
	seed := uint64(1)
	result := runner.Run(ctx, f.Task, b, oracle, runner.Config{
		NumWorkers: 1,
		Runtime:    selftestBudget,
		Seed:       &seed,
	}, nil)

	if result == nil {
		return outcome, nil
	}
	outcome.SolverYielded = true
	outcome.SolverScore = result.Score

	solution := modelSolution(result.Board)
	replayBoard, err := simulate.BuildBoard(f.Task, solution)
	if err != nil {
		return outcome, fmt.Errorf("fixture %s: rebuild board from solution: %w", f.Name, err)
	}
	replayResult, err := simulate.Run(f.Task, replayBoard, true, nil)
	if err != nil {
		return outcome, fmt.Errorf("fixture %s: replay simulation: %w", f.Name, err)
	}

	outcome.ReplayScore = replayResult
	outcome.Agrees = replayResult.Compare(outcome.SolverScore) == 0
	return outcome, nil
}
