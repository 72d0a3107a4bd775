package planner

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// exchangeFeeWei prices the value lost in a stable swap in wei. Both sides
// are treated as one USD per unit; the USD difference is divided by the ETH
// rate and truncated to whole wei. A swap that gains value costs nothing.
func exchangeFeeWei(input *big.Int, inDec uint8, output *big.Int, outDec uint8, rates models.Rates) (*big.Int, error) {
	ethUSD, ok := rates[constants.SymbolETH]
	if !ok || !ethUSD.IsPositive() {
		return nil, fmt.Errorf("%w: no USD rate for %s", ErrRateUnavailable, constants.SymbolETH)
	}

	lost := decimal.NewFromBigInt(input, -int32(inDec)).Sub(decimal.NewFromBigInt(output, -int32(outDec)))
	if !lost.IsPositive() {
		return new(big.Int), nil
	}

	wei, _ := lost.Shift(18).QuoRem(ethUSD, 0)
	return wei.BigInt(), nil
}
