package server

import (
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/yield-router/internal/zeroex"
)

func splitCSVQuery(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		parts := strings.Split(v, ",")
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func validRawAmount(s string) bool {
	v, ok := new(big.Int).SetString(s, 10)
	return ok && v.Sign() > 0
}

// Quote forwards a swap quote request to the 0x API
// Query: sellToken, buyToken, exactly one of sellAmount / buyAmount (base units),
// optional slippagePercentage, excludedSources (CSV), takerAddress
func (h *Handlers) Quote(c echo.Context) error {
	if h.ZeroEx == nil {
		return h.err(c, http.StatusBadRequest, "0x is not configured", nil)
	}

	sellToken := strings.TrimSpace(c.QueryParam("sellToken"))
	buyToken := strings.TrimSpace(c.QueryParam("buyToken"))
	sellAmount := strings.TrimSpace(c.QueryParam("sellAmount"))
	buyAmount := strings.TrimSpace(c.QueryParam("buyAmount"))

	if sellToken == "" {
		return h.err(c, http.StatusBadRequest, "invalid sellToken", map[string]any{"sellToken": "required"})
	}
	if buyToken == "" {
		return h.err(c, http.StatusBadRequest, "invalid buyToken", map[string]any{"buyToken": "required"})
	}
	if (sellAmount == "") == (buyAmount == "") {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "exactly one of sellAmount and buyAmount"})
	}
	if sellAmount != "" && !validRawAmount(sellAmount) {
		return h.err(c, http.StatusBadRequest, "invalid sellAmount", map[string]any{"sellAmount": "must be a positive integer"})
	}
	if buyAmount != "" && !validRawAmount(buyAmount) {
		return h.err(c, http.StatusBadRequest, "invalid buyAmount", map[string]any{"buyAmount": "must be a positive integer"})
	}

	slippage := strings.TrimSpace(c.QueryParam("slippagePercentage"))
	if slippage != "" {
		d, err := decimal.NewFromString(slippage)
		if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
			return h.err(c, http.StatusBadRequest, "invalid slippagePercentage", map[string]any{"slippagePercentage": "must be between 0 and 1"})
		}
	}

	taker := strings.TrimSpace(c.QueryParam("takerAddress"))
	if taker != "" && !common.IsHexAddress(taker) {
		return h.err(c, http.StatusBadRequest, "invalid takerAddress", map[string]any{"takerAddress": "must be a 0x address"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.ZeroEx.Quote(ctx, zeroex.QuoteRequest{
		SellToken:          sellToken,
		BuyToken:           buyToken,
		SellAmount:         sellAmount,
		BuyAmount:          buyAmount,
		SlippagePercentage: slippage,
		ExcludedSources:    splitCSVQuery(c.QueryParams()["excludedSources"]),
		TakerAddress:       taker,
	})
	if err != nil {
		var he *zeroex.HTTPError
		if errors.As(err, &he) && he.StatusCode >= 400 && he.StatusCode < 500 {
			return h.err(c, http.StatusBadRequest, "0x rejected the quote request", map[string]any{"err": err.Error()})
		}
		return h.err(c, http.StatusBadGateway, "0x quote failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, out)
}
