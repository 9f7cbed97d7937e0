// Package runner drives a single- or multi-threaded search for the best
// candidate board within a fixed wall-clock budget, fanning solve.Solver
// instances out across goroutines and keeping the best result seen.
//
// Grounded on original_source/solver/src/run.rs, with the worker-pool/
// stop-channel shape adapted from the teacher's internal/scheduler/scheduler.go.
package runner

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/perf-analysis/internal/board"
	"github.com/perf-analysis/internal/distance"
	"github.com/perf-analysis/internal/solve"
	"github.com/perf-analysis/pkg/model"
	"github.com/perf-analysis/pkg/utils"
)

// accumulationFraction reserves the last 1/6th of the runtime budget for
// gathering results from worker goroutines before returning, mirroring
// run.rs's time_for_accumulation = runtime / 6.
const accumulationFraction = 6

// Config tunes one solving run.
type Config struct {
	// NumWorkers selects single- or multi-threaded search: 1 runs a single
	// goroutine directly, anything greater fans out that many goroutines.
	NumWorkers int
	// Runtime bounds the whole run's wall-clock budget.
	Runtime time.Duration
	// Seed makes the run reproducible; nil seeds from the runtime's entropy.
	Seed *uint64
	// OnImprovement, if set, is called synchronously every time a new best
	// candidate is found, with the seed that produced it and the elapsed
	// time since the run started. Callers use this to feed internal/runledger
	// and internal/artifact without runner importing either package.
	OnImprovement func(result *solve.Result, seed uint64, elapsed time.Duration)
}

// Run searches task/b for the highest-scoring board it can find within
// cfg.Runtime, returning nil if no candidate ever reached a positive score.
func Run(ctx context.Context, task *model.Task, b *board.Board, oracle *distance.Oracle, cfg Config, logger utils.Logger) *solve.Result {
	if cfg.NumWorkers <= 1 {
		return runSingleThreaded(ctx, task, b, oracle, cfg, logger)
	}
	return runMultiThreaded(ctx, task, b, oracle, cfg, logger)
}

func newRNG(seed *uint64, offset uint64) (*rand.Rand, uint64) {
	if seed == nil {
		resolved := uint64(time.Now().UnixNano()) + offset
		return rand.New(rand.NewSource(int64(resolved))), resolved
	}
	resolved := *seed + offset
	return rand.New(rand.NewSource(int64(resolved))), resolved
}

func better(candidate, current *solve.Result) bool {
	if current == nil {
		return true
	}
	return candidate.Score.Compare(current.Score) > 0
}

// runSingleThreaded repeatedly asks one Solver for its next candidate,
// tracking a rolling average of how long each call takes and stopping
// before the next call would likely overrun the budget.
func runSingleThreaded(ctx context.Context, task *model.Task, b *board.Board, oracle *distance.Oracle, cfg Config, logger utils.Logger) *solve.Result {
	rng, seed := newRNG(cfg.Seed, 0)
	solver, err := solve.NewSolver(task, b, rng, cfg.Runtime, oracle, logger)
	if err != nil {
		if logger != nil {
			logger.Error("runner: failed to build solver: %v", err)
		}
		return nil
	}

	var best *solve.Result
	avg := newRollingAverage()
	start := time.Now()
	lastSolution := start

	for {
		select {
		case <-ctx.Done():
			return best
		default:
		}

		solution := solver.Next()
		now := time.Now()
		avg.add(now.Sub(lastSolution))
		lastSolution = now

		if solution == nil {
			return best
		}

		if better(solution, best) {
			best = solution
			if cfg.OnImprovement != nil {
				cfg.OnImprovement(best, seed, time.Since(start))
			}
		}

		if time.Since(start)+avg.get() > cfg.Runtime {
			return best
		}
	}
}

// runMultiThreaded fans solver goroutines out across cfg.NumWorkers,
// collects each worker's improving candidates over a results channel, and returns
// the best one seen before the runtime budget (minus a reserved
// accumulation window) elapses.
func runMultiThreaded(ctx context.Context, task *model.Task, b *board.Board, oracle *distance.Oracle, cfg Config, logger utils.Logger) *solve.Result {
	deadline := time.Now().Add(cfg.Runtime - cfg.Runtime/accumulationFraction)
	start := time.Now()

	type found struct {
		result *solve.Result
		seed   uint64
	}

	results := make(chan found)
	stop := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < cfg.NumWorkers; i++ {
		wg.Add(1)
		workerID := i
		go func() {
			defer wg.Done()

			rng, seed := newRNG(cfg.Seed, uint64(workerID))
			solver, err := solve.NewSolver(task, b, rng, cfg.Runtime, oracle, logger)
			if err != nil {
				if logger != nil {
					logger.Error("runner: worker %d failed to build solver: %v", workerID, err)
				}
				return
			}

			var localBest *solve.Result
			for {
				select {
				case <-stop:
					return
				case <-ctx.Done():
					return
				default:
				}

				solution := solver.Next()
				if solution == nil {
					return
				}

				if !better(solution, localBest) {
					continue
				}
				localBest = solution

				select {
				case results <- found{result: solution, seed: seed}:
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	var best *solve.Result
	timerC := timer.C
	ctxDone := ctx.Done()
	closeStop := func() {
		close(stop)
		// Disarm both trigger cases so the select above stops re-firing
		// them while it drains the remaining in-flight results.
		timerC = nil
		ctxDone = nil
	}

	for {
		select {
		case f, ok := <-results:
			if !ok {
				return best
			}
			if better(f.result, best) {
				best = f.result
				if cfg.OnImprovement != nil {
					cfg.OnImprovement(best, f.seed, time.Since(start))
				}
			}
		case <-timerC:
			closeStop()
		case <-ctxDone:
			closeStop()
		}
	}
}

// rollingAverage tracks the mean duration of a stream of samples, used to
// estimate whether one more solver iteration will fit in the remaining
// budget. Grounded on run.rs's RollingAverage.
type rollingAverage struct {
	average time.Duration
	count   uint32
}

func newRollingAverage() *rollingAverage {
	return &rollingAverage{}
}

func (r *rollingAverage) add(value time.Duration) {
	r.average = (r.average*time.Duration(r.count) + value) / time.Duration(r.count+1)
	r.count++
}

func (r *rollingAverage) get() time.Duration {
	return r.average
}
