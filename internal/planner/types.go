package planner

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/yield-router/internal/contracts"
	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// Direction of a plan
type Direction string

const (
	DirectionDeposit  Direction = "deposit"
	DirectionWithdraw Direction = "withdraw"
)

// LegKind is the liquidity source a leg draws on
type LegKind string

const (
	LegDirect     LegKind = "direct"
	LegStableSwap LegKind = "stableswap"
	LegOrderBook  LegKind = "orderbook"
)

// Transaction is an unsigned transaction descriptor handed to the signer
type Transaction struct {
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	Data        hexutil.Bytes  `json:"data"`
	Value       *big.Int       `json:"value"`
	ValueSymbol string         `json:"valueSymbol"`
}

// SwapLeg is one input source of a plan. Orders and Signatures always have
// equal length.
type SwapLeg struct {
	Kind     LegKind
	Currency string

	InputAmount *big.Int
	// OutputAmount is the part of the output credited toward the request
	OutputAmount *big.Int
	// Surplus is output beyond the request that decimal granularity made unavoidable
	Surplus *big.Int

	Orders     []models.Order
	Signatures [][]byte

	// MakerFillAmount is the maker fill passed on-chain; zero for non order-book legs
	MakerFillAmount *big.Int
	ProtocolFee     *big.Int
	Slippage        decimal.Decimal
}

// Plan is the ordered set of transactions realizing one request
type Plan struct {
	ID           string
	Pool         models.Pool
	Direction    Direction
	Token        models.Asset
	Amount       *big.Int
	Sender       common.Address
	Contract     common.Address
	Transactions []Transaction
	Legs         []SwapLeg
	// ExchangeFee is denominated in wei
	ExchangeFee *big.Int
	// Slippage is a percentage
	Slippage decimal.Decimal
}

// TotalOutput sums the credited output of every leg
func (p *Plan) TotalOutput() *big.Int {
	sum := new(big.Int)
	for _, l := range p.Legs {
		sum.Add(sum, l.OutputAmount)
	}
	return sum
}

type DepositRequest struct {
	Pool            models.Pool
	Sender          common.Address
	Amount          *big.Int
	Token           models.Asset
	SupportedAssets []models.Asset
	Rates           models.Rates
}

type WithdrawRequest struct {
	Pool   models.Pool
	Sender common.Address
	Amount *big.Int
	Token  models.Asset
}

type MaxWithdrawRequest struct {
	Pool   models.Pool
	Sender common.Address
	Token  models.Asset
}

// FundReader reads fund state and token allowances
type FundReader interface {
	AcceptedCurrencies(ctx context.Context, pool models.Pool) ([]string, error)
	FundBalancesAndPrices(ctx context.Context, pool models.Pool) (*models.FundSnapshot, error)
	AccountDepositUSD(ctx context.Context, pool models.Pool, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// StableSwapVenue quotes the stable-swap venue
type StableSwapVenue interface {
	SwapOutput(ctx context.Context, input, output common.Address, amount *big.Int) (*models.StableSwapOutput, error)
	RedeemValidity(ctx context.Context, amount *big.Int, output common.Address) (*models.StableSwapOutput, error)
	SwapFeeRate(ctx context.Context) (*big.Int, error)
}

// LiquidityAggregator quotes the order-book aggregator
type LiquidityAggregator interface {
	SwapQuote(ctx context.Context, req models.AggregatorRequest) (*models.AggregatorQuote, error)
}

// CallEncoder produces contract calldata
type CallEncoder interface {
	EncodeCall(contract contracts.Contract, method string, args ...any) ([]byte, error)
}

// VenueGate switches liquidity venues on and off at runtime
type VenueGate interface {
	VenueEnabled(ctx context.Context, venue string) bool
}

// Recorder receives planner measurements
type Recorder interface {
	ObserveSolverSteps(leg string, steps int)
	OracleCall(oracle string, err error)
}

type noopRecorder struct{}

func (noopRecorder) ObserveSolverSteps(string, int) {}
func (noopRecorder) OracleCall(string, error)       {}

type allVenues struct{}

func (allVenues) VenueEnabled(context.Context, string) bool { return true }
