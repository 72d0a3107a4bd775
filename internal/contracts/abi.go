package contracts

// Contract names one of the ABIs the router talks to
type Contract string

const (
	FundManager            Contract = "fund_manager"
	FundProxy              Contract = "fund_proxy"
	ERC20                  Contract = "erc20"
	MAsset                 Contract = "masset"
	MAssetValidationHelper Contract = "masset_validation_helper"
	RGTDistributor         Contract = "rgt_distributor"
)

// Method names as registered by the ABI parser.
// The fund proxy overloads exchangeAndDeposit; the parser suffixes the
// second declaration with "0".
const (
	MethodGetAcceptedCurrencies       = "getAcceptedCurrencies"
	MethodGetRawFundBalancesAndPrices = "getRawFundBalancesAndPrices"
	MethodBalanceOf                   = "balanceOf"
	MethodGetFundBalance              = "getFundBalance"
	MethodGetWithdrawalFeeRate        = "getWithdrawalFeeRate"
	MethodDeposit                     = "deposit"
	MethodWithdraw                    = "withdraw"

	MethodExchangeAndDepositStable = "exchangeAndDeposit"
	MethodExchangeAndDepositOrders = "exchangeAndDeposit0"
	MethodWithdrawAndExchange      = "withdrawAndExchange"

	MethodAllowance = "allowance"
	MethodApprove   = "approve"

	MethodGetSwapOutput     = "getSwapOutput"
	MethodSwapFee           = "swapFee"
	MethodGetRedeemValidity = "getRedeemValidity"

	MethodClaimRGT = "claimRgt"
)

const orderTupleComponents = `[
	{"name":"makerAddress","type":"address"},
	{"name":"takerAddress","type":"address"},
	{"name":"feeRecipientAddress","type":"address"},
	{"name":"senderAddress","type":"address"},
	{"name":"makerAssetAmount","type":"uint256"},
	{"name":"takerAssetAmount","type":"uint256"},
	{"name":"makerFee","type":"uint256"},
	{"name":"takerFee","type":"uint256"},
	{"name":"expirationTimeSeconds","type":"uint256"},
	{"name":"salt","type":"uint256"},
	{"name":"makerAssetData","type":"bytes"},
	{"name":"takerAssetData","type":"bytes"},
	{"name":"makerFeeAssetData","type":"bytes"},
	{"name":"takerFeeAssetData","type":"bytes"}
]`

const fundManagerABI = `[
	{"type":"function","name":"getAcceptedCurrencies","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"string[]"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getFundBalance","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getWithdrawalFeeRate","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"deposit","stateMutability":"payable",
	 "inputs":[{"name":"currencyCode","type":"string"},{"name":"amount","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable",
	 "inputs":[{"name":"currencyCode","type":"string"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const fundProxyABI = `[
	{"type":"function","name":"getRawFundBalancesAndPrices","stateMutability":"view","inputs":[],
	 "outputs":[
		{"name":"","type":"string[]"},
		{"name":"","type":"uint256[]"},
		{"name":"","type":"uint8[][]"},
		{"name":"","type":"uint256[][]"},
		{"name":"","type":"uint256[]"}
	 ]},
	{"type":"function","name":"exchangeAndDeposit","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"inputCurrencyCode","type":"string"},
		{"name":"inputAmount","type":"uint256"},
		{"name":"outputCurrencyCode","type":"string"}
	 ],
	 "outputs":[]},
	{"type":"function","name":"exchangeAndDeposit","stateMutability":"payable",
	 "inputs":[
		{"name":"inputErc20Contract","type":"address"},
		{"name":"inputAmount","type":"uint256"},
		{"name":"outputCurrencyCode","type":"string"},
		{"name":"orders","type":"tuple[]","components":` + orderTupleComponents + `},
		{"name":"signatures","type":"bytes[]"},
		{"name":"takerAssetFillAmount","type":"uint256"}
	 ],
	 "outputs":[]},
	{"type":"function","name":"withdrawAndExchange","stateMutability":"payable",
	 "inputs":[
		{"name":"inputCurrencyCodes","type":"string[]"},
		{"name":"inputAmounts","type":"uint256[]"},
		{"name":"outputErc20Contract","type":"address"},
		{"name":"orders","type":"tuple[][]","components":` + orderTupleComponents + `},
		{"name":"signatures","type":"bytes[][]"},
		{"name":"makerAssetFillAmounts","type":"uint256[]"},
		{"name":"protocolFees","type":"uint256[]"}
	 ],
	 "outputs":[]}
]`

const erc20ABI = `[
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const mAssetABI = `[
	{"type":"function","name":"getSwapOutput","stateMutability":"view",
	 "inputs":[
		{"name":"_input","type":"address"},
		{"name":"_output","type":"address"},
		{"name":"_quantity","type":"uint256"}
	 ],
	 "outputs":[{"name":"","type":"bool"},{"name":"","type":"string"},{"name":"output","type":"uint256"}]},
	{"type":"function","name":"swapFee","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const mAssetValidationHelperABI = `[
	{"type":"function","name":"getRedeemValidity","stateMutability":"view",
	 "inputs":[
		{"name":"_mAsset","type":"address"},
		{"name":"_mAssetQuantity","type":"uint256"},
		{"name":"_outputBasset","type":"address"}
	 ],
	 "outputs":[
		{"name":"","type":"bool"},
		{"name":"","type":"string"},
		{"name":"output","type":"uint256"},
		{"name":"bassetQuantityArg","type":"uint256"}
	 ]}
]`

const rgtDistributorABI = `[
	{"type":"function","name":"claimRgt","stateMutability":"nonpayable",
	 "inputs":[{"name":"amount","type":"uint256"}],
	 "outputs":[]}
]`

var abiSources = map[Contract]string{
	FundManager:            fundManagerABI,
	FundProxy:              fundProxyABI,
	ERC20:                  erc20ABI,
	MAsset:                 mAssetABI,
	MAssetValidationHelper: mAssetValidationHelperABI,
	RGTDistributor:         rgtDistributorABI,
}
