package planner

import (
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/yield-router/internal/models"
)

var (
	ErrOracleUnavailable     = errors.New("oracle unavailable")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrSolveExceeded         = errors.New("iterative solve exceeded step limit")
	ErrRateUnavailable       = errors.New("rate unavailable")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrUnknownAsset          = errors.New("unknown asset")
)

// PlanError carries the context of a failed planning call
type PlanError struct {
	Op    string
	Pool  models.Pool
	Token string
	Err   error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("%s %s on %s pool: %v", e.Op, e.Token, e.Pool, e.Err)
}

func (e *PlanError) Unwrap() error { return e.Err }

// Kind names the failure class of err for logs and metrics
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrOracleUnavailable):
		return "oracle_unavailable"
	case errors.Is(err, ErrInsufficientLiquidity):
		return "insufficient_liquidity"
	case errors.Is(err, ErrSolveExceeded):
		return "solve_exceeded"
	case errors.Is(err, ErrRateUnavailable):
		return "rate_unavailable"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrUnknownAsset):
		return "unknown_asset"
	default:
		return "internal"
	}
}

func oracleErr(what string, err error) error {
	return fmt.Errorf("%s: %w: %w", what, ErrOracleUnavailable, err)
}
