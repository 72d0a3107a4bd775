package mstable

import (
	"fmt"
	"math/big"

	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// FeeScale is the fixed-point scale of the venue's swap fee (1e18 = 100%)
var FeeScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ScaleAmount converts amount from fromDec to toDec decimals, truncating
func ScaleAmount(amount *big.Int, fromDec, toDec uint8) *big.Int {
	out := new(big.Int).Mul(amount, models.Pow10(toDec))
	return out.Div(out, models.Pow10(fromDec))
}

// PredictSwapOutput computes the venue output for input after the swap fee.
// out = scaled - scaled * fee / 1e18, with scaled = input rescaled to outDec
func PredictSwapOutput(input *big.Int, inDec, outDec uint8, fee *big.Int) *big.Int {
	scaled := ScaleAmount(input, inDec, outDec)
	charged := new(big.Int).Mul(scaled, fee)
	charged.Div(charged, FeeScale)
	return scaled.Sub(scaled, charged)
}

// EstimateInput returns a first guess of the input needed to receive need.
// in = need * 1e18 / (1e18 - fee), rescaled to inDec
func EstimateInput(need *big.Int, inDec, outDec uint8, fee *big.Int) (*big.Int, error) {
	if fee.Sign() < 0 || fee.Cmp(FeeScale) >= 0 {
		return nil, fmt.Errorf("swap fee %s out of range", fee)
	}
	denom := new(big.Int).Sub(FeeScale, fee)
	gross := new(big.Int).Mul(need, FeeScale)
	gross.Div(gross, denom)
	return ScaleAmount(gross, outDec, inDec), nil
}

// InputGranularity is the smallest input increment that can change the
// predicted output: 10^(inDec-outDec) when the input has more decimals, else 1
func InputGranularity(inDec, outDec uint8) *big.Int {
	if inDec <= outDec {
		return big.NewInt(1)
	}
	return models.Pow10(inDec - outDec)
}
