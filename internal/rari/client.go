package rari

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/chain"
	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/contracts"
	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// Client reads fund state from the yield aggregator's fund manager and proxy contracts
type Client struct {
	caller *contracts.Caller
	chain  *chain.Context
	logger *logrus.Logger
}

// ClientConfig holds the dependencies of a fund state Client
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

// AcceptedCurrencies returns the currencies pool accepts for direct deposit.
// The ETH pool only ever accepts ETH.
func (c *Client) AcceptedCurrencies(ctx context.Context, pool models.Pool) ([]string, error) {
	if pool == models.PoolEth {
		return []string{constants.SymbolETH}, nil
	}

	res, err := c.callManager(ctx, pool, contracts.MethodGetAcceptedCurrencies)
	if err != nil {
		return nil, err
	}
	currencies, ok := res[0].([]string)
	if !ok {
		return nil, fmt.Errorf("unexpected accepted currencies type %T", res[0])
	}
	return currencies, nil
}

// FundBalancesAndPrices snapshots raw balances, strategy-deployed balances and USD prices
func (c *Client) FundBalancesAndPrices(ctx context.Context, pool models.Pool) (*models.FundSnapshot, error) {
	pc, err := c.chain.PoolContracts(pool)
	if err != nil {
		return nil, err
	}
	res, err := c.caller.Call(ctx, contracts.FundProxy, pc.FundProxy, contracts.MethodGetRawFundBalancesAndPrices)
	if err != nil {
		c.logger.WithField("pool", pool).WithError(err).Warn("fund proxy balances call failed")
		return nil, err
	}
	if len(res) != 5 {
		return nil, fmt.Errorf("unexpected fund balances result length %d", len(res))
	}

	snap := &models.FundSnapshot{}
	var ok bool
	if snap.Currencies, ok = res[0].([]string); !ok {
		return nil, fmt.Errorf("unexpected currencies type %T", res[0])
	}
	if snap.RawBalances, ok = res[1].([]*big.Int); !ok {
		return nil, fmt.Errorf("unexpected raw balances type %T", res[1])
	}
	if snap.PoolIndexes, ok = res[2].([][]uint8); !ok {
		return nil, fmt.Errorf("unexpected pool indexes type %T", res[2])
	}
	if snap.PoolBalances, ok = res[3].([][]*big.Int); !ok {
		return nil, fmt.Errorf("unexpected pool balances type %T", res[3])
	}
	if snap.Prices, ok = res[4].([]*big.Int); !ok {
		return nil, fmt.Errorf("unexpected prices type %T", res[4])
	}

	n := len(snap.Currencies)
	if len(snap.RawBalances) != n || len(snap.PoolBalances) != n || len(snap.Prices) != n {
		return nil, fmt.Errorf("inconsistent fund snapshot: %d currencies, %d balances, %d pool balances, %d prices",
			n, len(snap.RawBalances), len(snap.PoolBalances), len(snap.Prices))
	}

	c.logger.WithFields(logrus.Fields{
		"pool":       pool,
		"currencies": n,
	}).Debug("fetched fund balances and prices")

	return snap, nil
}

// AccountDepositUSD returns account's balance in the pool, in USD at 18 decimals
func (c *Client) AccountDepositUSD(ctx context.Context, pool models.Pool, account common.Address) (*big.Int, error) {
	res, err := c.callManager(ctx, pool, contracts.MethodBalanceOf, account)
	if err != nil {
		return nil, err
	}
	return firstBigInt(res)
}

// FundBalanceUSD returns the pool's total balance, in USD at 18 decimals
func (c *Client) FundBalanceUSD(ctx context.Context, pool models.Pool) (*big.Int, error) {
	res, err := c.callManager(ctx, pool, contracts.MethodGetFundBalance)
	if err != nil {
		return nil, err
	}
	return firstBigInt(res)
}

// WithdrawalFeeRate returns the pool's withdrawal fee, scaled by 1e18
func (c *Client) WithdrawalFeeRate(ctx context.Context, pool models.Pool) (*big.Int, error) {
	res, err := c.callManager(ctx, pool, contracts.MethodGetWithdrawalFeeRate)
	if err != nil {
		return nil, err
	}
	return firstBigInt(res)
}

// Allowance returns the ERC20 allowance owner granted spender on token
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	res, err := c.caller.Call(ctx, contracts.ERC20, token, contracts.MethodAllowance, owner, spender)
	if err != nil {
		return nil, err
	}
	return firstBigInt(res)
}

func (c *Client) callManager(ctx context.Context, pool models.Pool, method string, args ...any) ([]any, error) {
	pc, err := c.chain.PoolContracts(pool)
	if err != nil {
		return nil, err
	}
	res, err := c.caller.Call(ctx, contracts.FundManager, pc.FundManager, method, args...)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"pool":   pool,
			"method": method,
		}).WithError(err).Warn("fund manager call failed")
		return nil, err
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return res, nil
}

func firstBigInt(res []any) (*big.Int, error) {
	if len(res) == 0 {
		return nil, fmt.Errorf("no values returned")
	}
	v, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T", res[0])
	}
	return v, nil
}
