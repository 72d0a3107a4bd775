package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Order is a 0x v3 limit order as consumed by the fund proxy.
// Field names match the ABI tuple component names.
type Order struct {
	MakerAddress          common.Address `json:"makerAddress"`
	TakerAddress          common.Address `json:"takerAddress"`
	FeeRecipientAddress   common.Address `json:"feeRecipientAddress"`
	SenderAddress         common.Address `json:"senderAddress"`
	MakerAssetAmount      *big.Int       `json:"makerAssetAmount"`
	TakerAssetAmount      *big.Int       `json:"takerAssetAmount"`
	MakerFee              *big.Int       `json:"makerFee"`
	TakerFee              *big.Int       `json:"takerFee"`
	ExpirationTimeSeconds *big.Int       `json:"expirationTimeSeconds"`
	Salt                  *big.Int       `json:"salt"`
	MakerAssetData        []byte         `json:"makerAssetData"`
	TakerAssetData        []byte         `json:"takerAssetData"`
	MakerFeeAssetData     []byte         `json:"makerFeeAssetData"`
	TakerFeeAssetData     []byte         `json:"takerFeeAssetData"`
}

// SignedOrder pairs an order with its maker signature
type SignedOrder struct {
	Order     Order
	Signature []byte
}

// SplitOrders strips signatures into a parallel sequence of equal length
func SplitOrders(signed []SignedOrder) ([]Order, [][]byte) {
	orders := make([]Order, len(signed))
	sigs := make([][]byte, len(signed))
	for i, so := range signed {
		orders[i] = so.Order
		sigs[i] = so.Signature
	}
	return orders, sigs
}

// AggregatorRequest asks the order-book aggregator for liquidity.
// BuyAmount optionally caps the maker side.
type AggregatorRequest struct {
	SellToken  common.Address
	BuyToken   common.Address
	SellAmount *big.Int
	BuyAmount  *big.Int
}

// AggregatorQuote is the fill computed over the aggregator's orders
type AggregatorQuote struct {
	Orders          []SignedOrder
	InputFilled     *big.Int
	ProtocolFee     *big.Int
	TakerFilled     *big.Int
	MakerFilled     *big.Int
	Price           decimal.Decimal
	GuaranteedPrice decimal.Decimal
}

// SlippagePercent is |price - guaranteed| / price * 100
func (q *AggregatorQuote) SlippagePercent() decimal.Decimal {
	if q.Price.IsZero() {
		return decimal.Zero
	}
	return q.Price.Sub(q.GuaranteedPrice).Abs().Div(q.Price).Mul(decimal.NewFromInt(100))
}

// StableSwapOutput is a stable-swap venue's answer to a swap or redeem query
type StableSwapOutput struct {
	Valid  bool
	Reason string
	Output *big.Int
}

// FundSnapshot is the fund's raw balances and prices at one point in time.
// Every slice is indexed by currency position.
type FundSnapshot struct {
	Currencies   []string
	RawBalances  []*big.Int
	PoolIndexes  [][]uint8
	PoolBalances [][]*big.Int
	Prices       []*big.Int
}

// Index returns the position of a currency, or -1
func (s *FundSnapshot) Index(symbol string) int {
	for i, c := range s.Currencies {
		if c == symbol {
			return i
		}
	}
	return -1
}
