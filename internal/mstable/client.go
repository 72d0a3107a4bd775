package mstable

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/chain"
	"github.com/aman-zulfiqar/yield-router/internal/contracts"
	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// Client queries the mStable mAsset and its validation helper
type Client struct {
	caller *contracts.Caller
	chain  *chain.Context
	logger *logrus.Logger
}

// ClientConfig holds the dependencies of an mStable Client
type ClientConfig struct {
	Caller *contracts.Caller
	Chain  *chain.Context
	Logger *logrus.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	if cfg.Chain == nil {
		return nil, fmt.Errorf("chain context is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Client{caller: cfg.Caller, chain: cfg.Chain, logger: cfg.Logger}, nil
}

// SwapOutput asks the mAsset what swapping amount of input into output yields
func (c *Client) SwapOutput(ctx context.Context, input, output common.Address, amount *big.Int) (*models.StableSwapOutput, error) {
	res, err := c.caller.Call(ctx, contracts.MAsset, c.chain.MStable, contracts.MethodGetSwapOutput, input, output, amount)
	if err != nil {
		return nil, err
	}
	return parseValidity(res)
}

// RedeemValidity asks the validation helper whether redeeming amount of
// mUSD into output is currently possible and what it yields
func (c *Client) RedeemValidity(ctx context.Context, amount *big.Int, output common.Address) (*models.StableSwapOutput, error) {
	res, err := c.caller.Call(ctx, contracts.MAssetValidationHelper, c.chain.MStableValidationHelper,
		contracts.MethodGetRedeemValidity, c.chain.MStable, amount, output)
	if err != nil {
		return nil, err
	}
	return parseValidity(res)
}

// SwapFeeRate returns the mAsset swap fee scaled by 1e18
func (c *Client) SwapFeeRate(ctx context.Context) (*big.Int, error) {
	res, err := c.caller.Call(ctx, contracts.MAsset, c.chain.MStable, contracts.MethodSwapFee)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("swapFee returned no values")
	}
	fee, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected swap fee type %T", res[0])
	}
	return fee, nil
}

func parseValidity(res []any) (*models.StableSwapOutput, error) {
	// the redeem helper appends the basset quantity after output
	if len(res) < 3 {
		return nil, fmt.Errorf("unexpected validity result length %d", len(res))
	}
	valid, ok := res[0].(bool)
	if !ok {
		return nil, fmt.Errorf("unexpected validity flag type %T", res[0])
	}
	reason, ok := res[1].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected validity reason type %T", res[1])
	}
	out, ok := res[2].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", res[2])
	}
	return &models.StableSwapOutput{Valid: valid, Reason: reason, Output: out}, nil
}
