package zeroex

type QuoteRequest struct {
	SellToken string
	BuyToken  string

	// Exactly one of SellAmount / BuyAmount; raw integers as strings
	SellAmount string
	BuyAmount  string

	SlippagePercentage string
	ExcludedSources    []string
	TakerAddress       string
}

type QuoteResponse struct {
	Price            string     `json:"price"`
	GuaranteedPrice  string     `json:"guaranteedPrice"`
	To               string     `json:"to"`
	Data             string     `json:"data"`
	Value            string     `json:"value"`
	Gas              string     `json:"gas"`
	GasPrice         string     `json:"gasPrice"`
	ProtocolFee      string     `json:"protocolFee"`
	BuyTokenAddress  string     `json:"buyTokenAddress"`
	SellTokenAddress string     `json:"sellTokenAddress"`
	BuyAmount        string     `json:"buyAmount"`
	SellAmount       string     `json:"sellAmount"`
	Sources          []Source   `json:"sources,omitempty"`
	Orders           []APIOrder `json:"orders"`
}

type Source struct {
	Name       string `json:"name"`
	Proportion string `json:"proportion"`
}

// APIOrder is a signed 0x v3 order as returned by the swap API
type APIOrder struct {
	ChainID               int    `json:"chainId,omitempty"`
	ExchangeAddress       string `json:"exchangeAddress,omitempty"`
	MakerAddress          string `json:"makerAddress"`
	TakerAddress          string `json:"takerAddress"`
	FeeRecipientAddress   string `json:"feeRecipientAddress"`
	SenderAddress         string `json:"senderAddress"`
	MakerAssetAmount      string `json:"makerAssetAmount"`
	TakerAssetAmount      string `json:"takerAssetAmount"`
	MakerFee              string `json:"makerFee"`
	TakerFee              string `json:"takerFee"`
	ExpirationTimeSeconds string `json:"expirationTimeSeconds"`
	Salt                  string `json:"salt"`
	MakerAssetData        string `json:"makerAssetData"`
	TakerAssetData        string `json:"takerAssetData"`
	MakerFeeAssetData     string `json:"makerFeeAssetData"`
	TakerFeeAssetData     string `json:"takerFeeAssetData"`
	Signature             string `json:"signature"`
}
