package models

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Pool identifies one of the yield aggregator's funds
type Pool string

const (
	PoolStable Pool = "stable"
	PoolYield  Pool = "yield"
	PoolEth    Pool = "eth"
)

// ParsePool normalizes a pool name
func ParsePool(s string) (Pool, error) {
	switch p := Pool(strings.ToLower(strings.TrimSpace(s))); p {
	case PoolStable, PoolYield, PoolEth:
		return p, nil
	default:
		return "", fmt.Errorf("unknown pool %q", s)
	}
}

// Asset is a token known to the wallet
type Asset struct {
	Symbol   string         `json:"symbol" mapstructure:"symbol"`
	Address  common.Address `json:"address" mapstructure:"address"`
	Decimals uint8          `json:"decimals" mapstructure:"decimals"`
}

// Rates maps a currency symbol to its USD rate
type Rates map[string]decimal.Decimal

// Pow10 returns 10^n as a big.Int
func Pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// maxUint256Digits is the decimal width of 2^256-1
const maxUint256Digits = 78

// ParseUnits converts a human decimal string ("12.5") into base units.
// Results that do not fit a uint256 are rejected.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsZero() {
		return new(big.Int), nil
	}

	// bound the exponent before anything materialises 10^exp
	digits := int64(len(new(big.Int).Abs(d.Coefficient()).String()))
	scale := int64(d.Exponent()) + int64(decimals)
	if digits+scale > maxUint256Digits {
		return nil, fmt.Errorf("amount %q exceeds uint256", s)
	}
	if -scale >= digits {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}

	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	v := shifted.BigInt()
	if v.BitLen() > 256 {
		return nil, fmt.Errorf("amount %q exceeds uint256", s)
	}
	return v, nil
}

// FormatUnits renders base units as a human decimal string
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
