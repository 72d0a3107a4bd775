package planner

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/yield-router/internal/models"
)

func half(x *big.Int) *big.Int { return new(big.Int).Rsh(x, 1) }

func TestSolver_MinimalInput(t *testing.T) {
	s := DefaultSolver()

	in, out, steps, err := s.MinimalInput(big.NewInt(10), big.NewInt(7), nil, half)
	require.NoError(t, err)
	assert.Equal(t, int64(14), in.Int64())
	assert.Equal(t, int64(7), out.Int64())
	assert.Equal(t, 4, steps)
}

func TestSolver_StartAlreadyEnough(t *testing.T) {
	in, _, steps, err := DefaultSolver().MinimalInput(big.NewInt(100), big.NewInt(7), nil, half)
	require.NoError(t, err)
	assert.Equal(t, int64(100), in.Int64())
	assert.Zero(t, steps)
}

func TestSolver_Granularity(t *testing.T) {
	// output only moves once per 1e12 of input
	coarse := func(x *big.Int) *big.Int { return new(big.Int).Div(x, models.Pow10(12)) }

	in, out, steps, err := DefaultSolver().MinimalInput(big.NewInt(0), big.NewInt(3), models.Pow10(12), coarse)
	require.NoError(t, err)
	assert.Equal(t, "3000000000000", in.String())
	assert.Equal(t, int64(3), out.Int64())
	assert.Equal(t, 3, steps)
}

func TestSolver_Exceeded(t *testing.T) {
	s := Solver{MaxSteps: 5, Step: big.NewInt(1)}
	never := func(*big.Int) *big.Int { return big.NewInt(0) }

	_, _, steps, err := s.MinimalInput(big.NewInt(0), big.NewInt(1), nil, never)
	assert.ErrorIs(t, err, ErrSolveExceeded)
	assert.Equal(t, 5, steps)
}

func TestSolver_DoesNotMutateStart(t *testing.T) {
	start := big.NewInt(10)
	_, _, _, err := DefaultSolver().MinimalInput(start, big.NewInt(7), nil, half)
	require.NoError(t, err)
	assert.Equal(t, int64(10), start.Int64())
}
