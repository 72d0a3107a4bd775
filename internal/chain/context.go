package chain

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// PoolContracts are the entry points of one fund
type PoolContracts struct {
	FundManager common.Address
	FundProxy   common.Address
}

// Context carries the network-specific addresses every component needs.
// It is built once at startup and passed down explicitly.
type Context struct {
	Network string
	ChainID int64

	Pools map[models.Pool]PoolContracts

	MStable                 common.Address
	MStableValidationHelper common.Address
	RGTDistributor          common.Address

	// Assets is the universe of tokens the funds and venues can touch, keyed by symbol
	Assets map[string]models.Asset
}

// PoolContracts returns the contracts of pool
func (c *Context) PoolContracts(pool models.Pool) (PoolContracts, error) {
	pc, ok := c.Pools[pool]
	if !ok {
		return PoolContracts{}, fmt.Errorf("pool %q not configured on %s", pool, c.Network)
	}
	return pc, nil
}

// Asset looks up a token by symbol
func (c *Context) Asset(symbol string) (models.Asset, bool) {
	a, ok := c.Assets[symbol]
	return a, ok
}

// SupportedAssets returns every known asset ordered by symbol
func (c *Context) SupportedAssets() []models.Asset {
	out := make([]models.Asset, 0, len(c.Assets))
	for _, a := range c.Assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// IsNative reports whether symbol is the chain's native currency
func (c *Context) IsNative(symbol string) bool {
	return symbol == constants.SymbolETH
}

// WrappedNative returns the wrapped native token used on order books
func (c *Context) WrappedNative() (models.Asset, error) {
	a, ok := c.Assets[constants.SymbolWETH]
	if !ok {
		return models.Asset{}, fmt.Errorf("%s not configured on %s", constants.SymbolWETH, c.Network)
	}
	return a, nil
}

// Validate checks that the context can serve planning calls
func (c *Context) Validate() error {
	if c.Network == "" {
		return fmt.Errorf("network is required")
	}
	if len(c.Pools) == 0 {
		return fmt.Errorf("no pools configured")
	}
	for p, pc := range c.Pools {
		if pc.FundManager == (common.Address{}) || pc.FundProxy == (common.Address{}) {
			return fmt.Errorf("pool %q: fund manager and fund proxy are required", p)
		}
	}
	if _, err := c.WrappedNative(); err != nil {
		return err
	}
	for sym, a := range c.Assets {
		if a.Symbol != sym {
			return fmt.Errorf("asset %q: symbol mismatch %q", sym, a.Symbol)
		}
	}
	return nil
}

// Mainnet returns the Ethereum mainnet deployment
func Mainnet() *Context {
	assets := []models.Asset{
		{Symbol: constants.SymbolETH, Address: common.Address{}, Decimals: 18},
		{Symbol: constants.SymbolWETH, Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), Decimals: 18},
		{Symbol: constants.SymbolDAI, Address: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Decimals: 18},
		{Symbol: constants.SymbolUSDC, Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Decimals: 6},
		{Symbol: constants.SymbolUSDT, Address: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), Decimals: 6},
		{Symbol: constants.SymbolTUSD, Address: common.HexToAddress("0x0000000000085d4780B73119b644AE5ecd22b376"), Decimals: 18},
		{Symbol: constants.SymbolMUSD, Address: common.HexToAddress("0xe2f2a5C287993345a840Db3B0845fbC70f5935a5"), Decimals: 18},
		{Symbol: "BUSD", Address: common.HexToAddress("0x4Fabb145d64652a948d72533023f6E7A623C7C53"), Decimals: 18},
		{Symbol: "sUSD", Address: common.HexToAddress("0x57Ab1ec28D129707052df4dF418D58a2D46d5f51"), Decimals: 18},
		{Symbol: constants.SymbolRGT, Address: common.HexToAddress("0xD291E7a03283640FDc51b121aC401383A46cC623"), Decimals: 18},
	}
	bySymbol := make(map[string]models.Asset, len(assets))
	for _, a := range assets {
		bySymbol[a.Symbol] = a
	}

	return &Context{
		Network: "mainnet",
		ChainID: 1,
		Pools: map[models.Pool]PoolContracts{
			models.PoolStable: {
				FundManager: common.HexToAddress("0xC6BF8C8A55f77686720E0a88e2Fd1fEEF58ddf4a"),
				FundProxy:   common.HexToAddress("0xD4be7E211680e12c08bbE9054F0dA0D646c45228"),
			},
			models.PoolYield: {
				FundManager: common.HexToAddress("0x59FA438cD0731EBF5F4cDCaf72D4960EFd13FCe6"),
				FundProxy:   common.HexToAddress("0x35DDEFa2a30474E64314aAA7370abE14c042C6e8"),
			},
			models.PoolEth: {
				FundManager: common.HexToAddress("0xD6e194aF3d9674b62D1b30Ec676030C23961275e"),
				FundProxy:   common.HexToAddress("0xa3cc9e4B9784c80a05B3Af215C32ff223C3ebE5c"),
			},
		},
		MStable:                 common.HexToAddress("0xe2f2a5C287993345a840Db3B0845fbC70f5935a5"),
		MStableValidationHelper: common.HexToAddress("0xABcC93C3be238884cc3309C19Afd128fAfC16911"),
		RGTDistributor:          common.HexToAddress("0x9C0CaEb986c003417D21A7Daaf30221d61FC1043"),
		Assets:                  bySymbol,
	}
}
