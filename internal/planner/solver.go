package planner

import (
	"fmt"
	"math/big"

	"github.com/aman-zulfiqar/yield-router/internal/constants"
)

// Solver searches for the smallest input whose output reaches a target by
// stepping the input upward from a first estimate
type Solver struct {
	MaxSteps int
	Step     *big.Int
}

func DefaultSolver() Solver {
	return Solver{
		MaxSteps: constants.DefaultSolverMaxSteps,
		Step:     big.NewInt(constants.DefaultSolverStep),
	}
}

// MinimalInput increments start by Step*granularity until output(input) >= target.
// It returns the input, its output and the number of increments taken.
// More than MaxSteps increments fails with ErrSolveExceeded.
func (s Solver) MinimalInput(start, target, granularity *big.Int, output func(*big.Int) *big.Int) (*big.Int, *big.Int, int, error) {
	step := new(big.Int).Set(s.Step)
	if step.Sign() <= 0 {
		step.SetInt64(1)
	}
	if granularity != nil && granularity.Sign() > 0 {
		step.Mul(step, granularity)
	}

	in := new(big.Int).Set(start)
	if in.Sign() < 0 {
		in.SetInt64(0)
	}
	out := output(in)

	steps := 0
	for out.Cmp(target) < 0 {
		if steps >= s.MaxSteps {
			return nil, nil, steps, fmt.Errorf("%w: no input reaches %s after %d steps", ErrSolveExceeded, target, steps)
		}
		in.Add(in, step)
		out = output(in)
		steps++
	}
	return in, out, steps, nil
}
