package constants

import "time"

// Redis keys
const (
	RedisKeyRecentPlans = "plans:recent"
	RedisKeyPricePrefix = "price:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelPlans = "plans:live"
)

// Limits
const (
	MaxRecentPlans = 100
)

// Timeouts
const (
	DefaultPlanTimeout = 20 * time.Second

	// Pause between 0x price requests of one rate refresh
	DelayBetweenRateQuotes = 250 * time.Millisecond
)

// Solver defaults
const (
	DefaultSolverMaxSteps = 1000
	DefaultSolverStep     = 1
)

// Currency symbols
const (
	SymbolETH  = "ETH"
	SymbolWETH = "WETH"
	SymbolDAI  = "DAI"
	SymbolUSDC = "USDC"
	SymbolUSDT = "USDT"
	SymbolTUSD = "TUSD"
	SymbolMUSD = "mUSD"
	SymbolRGT  = "RGT"
)

// MajorStables can be routed through the stable-swap venue as input
var MajorStables = []string{SymbolDAI, SymbolUSDC, SymbolUSDT, SymbolTUSD}

// StableSwapCompatible are the currencies the stable-swap venue can output
var StableSwapCompatible = []string{SymbolDAI, SymbolUSDC, SymbolUSDT, SymbolTUSD, SymbolMUSD}

// Venue flag keys (see flags.Gate)
const (
	VenueStableSwap = "stableswap"
	VenueOrderBook  = "orderbook"
)

// IsMajorStable reports whether symbol is one of MajorStables
func IsMajorStable(symbol string) bool {
	return contains(MajorStables, symbol)
}

// IsStableSwapCompatible reports whether symbol is one of StableSwapCompatible
func IsStableSwapCompatible(symbol string) bool {
	return contains(StableSwapCompatible, symbol)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
