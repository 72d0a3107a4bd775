package zeroex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// ErrNoOrders is returned when the aggregator has no fillable orders for a pair
var ErrNoOrders = errors.New("no orders found on 0x swap API")

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.0x.org/swap/v0"
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(apiKey),
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("0x http %d", e.StatusCode)
	}
	return fmt.Sprintf("0x http %d: %s", e.StatusCode, b)
}

func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if strings.TrimSpace(req.SellToken) == "" {
		return nil, fmt.Errorf("sellToken is required")
	}
	if strings.TrimSpace(req.BuyToken) == "" {
		return nil, fmt.Errorf("buyToken is required")
	}
	if (req.SellAmount == "") == (req.BuyAmount == "") {
		return nil, fmt.Errorf("exactly one of sellAmount and buyAmount is required")
	}

	q := url.Values{}
	q.Set("sellToken", req.SellToken)
	q.Set("buyToken", req.BuyToken)
	if req.SellAmount != "" {
		q.Set("sellAmount", req.SellAmount)
	}
	if req.BuyAmount != "" {
		q.Set("buyAmount", req.BuyAmount)
	}
	if req.SlippagePercentage != "" {
		q.Set("slippagePercentage", req.SlippagePercentage)
	}
	if len(req.ExcludedSources) > 0 {
		q.Set("excludedSources", strings.Join(req.ExcludedSources, ","))
	}
	if req.TakerAddress != "" {
		q.Set("takerAddress", req.TakerAddress)
	}

	u := c.BaseURL + "/quote?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("accept", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("0x-api-key", c.APIKey)
	}

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out QuoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode 0x quote response: %w", err)
	}
	return &out, nil
}

// SwapQuote fetches orders for req and fills them up to req.SellAmount of
// input and, when set, req.BuyAmount of output.
func (c *Client) SwapQuote(ctx context.Context, req models.AggregatorRequest) (*models.AggregatorQuote, error) {
	if req.SellAmount == nil || req.SellAmount.Sign() <= 0 {
		return nil, fmt.Errorf("sell amount must be positive")
	}

	qr := QuoteRequest{
		SellToken: req.SellToken.Hex(),
		BuyToken:  req.BuyToken.Hex(),
	}
	if req.BuyAmount != nil {
		qr.BuyAmount = req.BuyAmount.String()
	} else {
		qr.SellAmount = req.SellAmount.String()
	}

	resp, err := c.Quote(ctx, qr)
	if err != nil {
		return nil, err
	}

	orders := make([]models.SignedOrder, 0, len(resp.Orders))
	for i, o := range resp.Orders {
		so, err := o.toSigned()
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		orders = append(orders, so)
	}

	fill := FillOrders(orders, req.SellAmount, req.BuyAmount)
	if fill.TakerFilled.Sign() == 0 {
		return nil, ErrNoOrders
	}

	price, err := decimal.NewFromString(resp.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", resp.Price, err)
	}
	guaranteed, err := decimal.NewFromString(resp.GuaranteedPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid guaranteedPrice %q: %w", resp.GuaranteedPrice, err)
	}
	protocolFee := new(big.Int)
	if resp.ProtocolFee != "" {
		if _, ok := protocolFee.SetString(resp.ProtocolFee, 10); !ok {
			return nil, fmt.Errorf("invalid protocolFee %q", resp.ProtocolFee)
		}
	}

	return &models.AggregatorQuote{
		Orders:          fill.Orders,
		InputFilled:     fill.InputFilled,
		ProtocolFee:     protocolFee,
		TakerFilled:     fill.TakerFilled,
		MakerFilled:     fill.MakerFilled,
		Price:           price,
		GuaranteedPrice: guaranteed,
	}, nil
}
