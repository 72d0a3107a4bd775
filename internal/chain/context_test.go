package chain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/yield-router/internal/models"
)

func TestMainnet_Validate(t *testing.T) {
	ctx := Mainnet()
	require.NoError(t, ctx.Validate())

	pc, err := ctx.PoolContracts(models.PoolStable)
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, pc.FundManager)

	usdc, ok := ctx.Asset("USDC")
	require.True(t, ok)
	assert.Equal(t, uint8(6), usdc.Decimals)

	assets := ctx.SupportedAssets()
	for i := 1; i < len(assets); i++ {
		assert.Less(t, assets[i-1].Symbol, assets[i].Symbol)
	}
}

func TestLoad_EmptyPathReturnsMainnet(t *testing.T) {
	ctx, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mainnet", ctx.Network)
}

func TestLoad_OverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chain.yaml")
	body := `
network: testnet
chain_id: 5
pools:
  stable:
    fund_manager: "0x1111111111111111111111111111111111111111"
    fund_proxy: "0x2222222222222222222222222222222222222222"
mstable: "0x3333333333333333333333333333333333333333"
assets:
  - symbol: DAI
    address: "0x4444444444444444444444444444444444444444"
    decimals: 18
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	ctx, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "testnet", ctx.Network)
	assert.Equal(t, int64(5), ctx.ChainID)

	pc, err := ctx.PoolContracts(models.PoolStable)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), pc.FundManager)

	// untouched pools keep their defaults
	_, err = ctx.PoolContracts(models.PoolEth)
	assert.NoError(t, err)

	assert.Equal(t, common.HexToAddress("0x3333333333333333333333333333333333333333"), ctx.MStable)
	dai, _ := ctx.Asset("DAI")
	assert.Equal(t, common.HexToAddress("0x4444444444444444444444444444444444444444"), dai.Address)
}

func TestLoad_RejectsBadAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mstable: nope\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")
}

func TestLoad_RejectsUnknownPool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chain.yaml")
	body := `
pools:
  btc:
    fund_manager: "0x1111111111111111111111111111111111111111"
    fund_proxy: "0x2222222222222222222222222222222222222222"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
