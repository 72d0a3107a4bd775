package rari

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/yield-router/internal/chain"
	"github.com/aman-zulfiqar/yield-router/internal/contracts"
	"github.com/aman-zulfiqar/yield-router/internal/contracts/contractstest"
	"github.com/aman-zulfiqar/yield-router/internal/models"
)

func setup(t *testing.T) (*Client, *contractstest.Backend, *chain.Context) {
	t.Helper()
	backend := contractstest.NewBackend(t)
	caller, err := contracts.NewCaller(backend, backend.Encoder())
	require.NoError(t, err)
	cc := chain.Mainnet()
	c, err := NewClient(ClientConfig{Caller: caller, Chain: cc})
	require.NoError(t, err)
	return c, backend, cc
}

func TestAcceptedCurrencies(t *testing.T) {
	c, backend, cc := setup(t)
	manager := cc.Pools[models.PoolStable].FundManager
	backend.Return(contracts.FundManager, manager, contracts.MethodGetAcceptedCurrencies, []string{"DAI", "USDC"})

	got, err := c.AcceptedCurrencies(context.Background(), models.PoolStable)
	require.NoError(t, err)
	assert.Equal(t, []string{"DAI", "USDC"}, got)
}

func TestAcceptedCurrencies_EthPoolNeedsNoCall(t *testing.T) {
	c, backend, _ := setup(t)

	got, err := c.AcceptedCurrencies(context.Background(), models.PoolEth)
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH"}, got)
	assert.Empty(t, backend.Calls())
}

func TestFundBalancesAndPrices(t *testing.T) {
	c, backend, cc := setup(t)
	proxy := cc.Pools[models.PoolStable].FundProxy
	backend.Return(contracts.FundProxy, proxy, contracts.MethodGetRawFundBalancesAndPrices,
		[]string{"USDC", "DAI"},
		[]*big.Int{big.NewInt(10), big.NewInt(20)},
		[][]uint8{{0}, {0, 1}},
		[][]*big.Int{{big.NewInt(1)}, {big.NewInt(2), big.NewInt(3)}},
		[]*big.Int{big.NewInt(1e18), big.NewInt(1e18)},
	)

	snap, err := c.FundBalancesAndPrices(context.Background(), models.PoolStable)
	require.NoError(t, err)
	assert.Equal(t, []string{"USDC", "DAI"}, snap.Currencies)
	assert.Equal(t, int64(20), snap.RawBalances[1].Int64())
	assert.Equal(t, []uint8{0, 1}, snap.PoolIndexes[1])
	assert.Equal(t, int64(3), snap.PoolBalances[1][1].Int64())
	assert.Equal(t, 1, snap.Index("DAI"))

	// balances live on the proxy, not the manager
	calls := backend.Calls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].To)
	assert.Equal(t, proxy, *calls[0].To)
}

func TestFundBalancesAndPrices_Inconsistent(t *testing.T) {
	c, backend, cc := setup(t)
	proxy := cc.Pools[models.PoolYield].FundProxy
	backend.Return(contracts.FundProxy, proxy, contracts.MethodGetRawFundBalancesAndPrices,
		[]string{"USDC", "DAI"},
		[]*big.Int{big.NewInt(10)},
		[][]uint8{{}, {}},
		[][]*big.Int{{}, {}},
		[]*big.Int{big.NewInt(1e18), big.NewInt(1e18)},
	)

	_, err := c.FundBalancesAndPrices(context.Background(), models.PoolYield)
	assert.ErrorContains(t, err, "inconsistent fund snapshot")
}

func TestAccountAndFundFigures(t *testing.T) {
	c, backend, cc := setup(t)
	manager := cc.Pools[models.PoolStable].FundManager
	account := common.HexToAddress("0x5555555555555555555555555555555555555555")

	backend.Return(contracts.FundManager, manager, contracts.MethodBalanceOf, big.NewInt(123))
	backend.Return(contracts.FundManager, manager, contracts.MethodGetFundBalance, big.NewInt(456))
	backend.Return(contracts.FundManager, manager, contracts.MethodGetWithdrawalFeeRate, big.NewInt(5e15))

	ctx := context.Background()
	v, err := c.AccountDepositUSD(ctx, models.PoolStable, account)
	require.NoError(t, err)
	assert.Equal(t, int64(123), v.Int64())

	v, err = c.FundBalanceUSD(ctx, models.PoolStable)
	require.NoError(t, err)
	assert.Equal(t, int64(456), v.Int64())

	v, err = c.WithdrawalFeeRate(ctx, models.PoolStable)
	require.NoError(t, err)
	assert.Equal(t, int64(5e15), v.Int64())
}

func TestAllowance(t *testing.T) {
	c, backend, cc := setup(t)
	usdc, _ := cc.Asset("USDC")
	owner := common.HexToAddress("0x5555555555555555555555555555555555555555")
	spender := cc.Pools[models.PoolStable].FundManager

	backend.ReturnFor(contracts.ERC20, usdc.Address, contracts.MethodAllowance, []any{owner, spender}, big.NewInt(77))

	v, err := c.Allowance(context.Background(), usdc.Address, owner, spender)
	require.NoError(t, err)
	assert.Equal(t, int64(77), v.Int64())
}

func TestCallFailurePropagates(t *testing.T) {
	c, backend, cc := setup(t)
	manager := cc.Pools[models.PoolStable].FundManager
	boom := errors.New("node down")
	backend.Fail(contracts.FundManager, manager, contracts.MethodGetAcceptedCurrencies, boom)

	_, err := c.AcceptedCurrencies(context.Background(), models.PoolStable)
	assert.ErrorIs(t, err, boom)
}
