package zeroex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// Fill is the portion of an order list that fits under the caps
type Fill struct {
	Orders      []models.SignedOrder
	InputFilled *big.Int
	TakerFilled *big.Int
	MakerFilled *big.Int
}

// FillOrders walks orders in the aggregator's order, taking each until
// maxInput of taker asset or maxOutput (when non-nil) of maker asset is reached.
// Orders charging a taker fee are skipped, so input filled equals taker filled.
func FillOrders(orders []models.SignedOrder, maxInput, maxOutput *big.Int) Fill {
	f := Fill{
		InputFilled: new(big.Int),
		TakerFilled: new(big.Int),
		MakerFilled: new(big.Int),
	}

	for _, so := range orders {
		o := so.Order
		if o.TakerFee != nil && o.TakerFee.Sign() > 0 {
			continue
		}
		if o.TakerAssetAmount == nil || o.MakerAssetAmount == nil ||
			o.TakerAssetAmount.Sign() <= 0 || o.MakerAssetAmount.Sign() <= 0 {
			continue
		}

		taker := new(big.Int).Set(o.TakerAssetAmount)
		maker := new(big.Int).Set(o.MakerAssetAmount)

		if room := new(big.Int).Sub(maxInput, f.InputFilled); taker.Cmp(room) > 0 {
			taker = room
			maker = mulDiv(taker, o.MakerAssetAmount, o.TakerAssetAmount)
		}
		if maxOutput != nil {
			if room := new(big.Int).Sub(maxOutput, f.MakerFilled); maker.Cmp(room) > 0 {
				maker = room
				taker = mulDivCeil(maker, o.TakerAssetAmount, o.MakerAssetAmount)
				if inRoom := new(big.Int).Sub(maxInput, f.InputFilled); taker.Cmp(inRoom) > 0 {
					taker = inRoom
				}
			}
		}
		if taker.Sign() <= 0 || maker.Sign() <= 0 {
			break
		}

		f.InputFilled.Add(f.InputFilled, taker)
		f.TakerFilled.Add(f.TakerFilled, taker)
		f.MakerFilled.Add(f.MakerFilled, maker)
		f.Orders = append(f.Orders, so)

		if f.InputFilled.Cmp(maxInput) >= 0 {
			break
		}
		if maxOutput != nil && f.MakerFilled.Cmp(maxOutput) >= 0 {
			break
		}
	}
	return f
}

func mulDiv(a, b, c *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Div(out, c)
}

func mulDivCeil(a, b, c *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	out.Add(out, new(big.Int).Sub(c, big.NewInt(1)))
	return out.Div(out, c)
}

func (o APIOrder) toSigned() (models.SignedOrder, error) {
	var (
		so  models.SignedOrder
		err error
	)
	ord := &so.Order

	addrs := []struct {
		name string
		raw  string
		dst  *common.Address
	}{
		{"makerAddress", o.MakerAddress, &ord.MakerAddress},
		{"takerAddress", o.TakerAddress, &ord.TakerAddress},
		{"feeRecipientAddress", o.FeeRecipientAddress, &ord.FeeRecipientAddress},
		{"senderAddress", o.SenderAddress, &ord.SenderAddress},
	}
	for _, a := range addrs {
		if !common.IsHexAddress(a.raw) {
			return so, fmt.Errorf("invalid %s %q", a.name, a.raw)
		}
		*a.dst = common.HexToAddress(a.raw)
	}

	ints := []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"makerAssetAmount", o.MakerAssetAmount, &ord.MakerAssetAmount},
		{"takerAssetAmount", o.TakerAssetAmount, &ord.TakerAssetAmount},
		{"makerFee", o.MakerFee, &ord.MakerFee},
		{"takerFee", o.TakerFee, &ord.TakerFee},
		{"expirationTimeSeconds", o.ExpirationTimeSeconds, &ord.ExpirationTimeSeconds},
		{"salt", o.Salt, &ord.Salt},
	}
	for _, n := range ints {
		v, ok := new(big.Int).SetString(defaultZero(n.raw), 10)
		if !ok {
			return so, fmt.Errorf("invalid %s %q", n.name, n.raw)
		}
		*n.dst = v
	}

	blobs := []struct {
		name string
		raw  string
		dst  *[]byte
	}{
		{"makerAssetData", o.MakerAssetData, &ord.MakerAssetData},
		{"takerAssetData", o.TakerAssetData, &ord.TakerAssetData},
		{"makerFeeAssetData", o.MakerFeeAssetData, &ord.MakerFeeAssetData},
		{"takerFeeAssetData", o.TakerFeeAssetData, &ord.TakerFeeAssetData},
		{"signature", o.Signature, &so.Signature},
	}
	for _, b := range blobs {
		if *b.dst, err = decodeHex(b.raw); err != nil {
			return so, fmt.Errorf("invalid %s: %w", b.name, err)
		}
	}
	return so, nil
}

func defaultZero(s string) string {
	if strings.TrimSpace(s) == "" {
		return "0"
	}
	return s
}

func decodeHex(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return []byte{}, nil
	}
	return hexutil.Decode(s)
}
