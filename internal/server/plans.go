package server

import (
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/engine"
	"github.com/aman-zulfiqar/yield-router/internal/models"
	"github.com/aman-zulfiqar/yield-router/internal/planner"
)

// PlanDeposit plans a deposit and returns its transactions
func (h *Handlers) PlanDeposit(c echo.Context) error {
	var req PlanRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), h.PlanTimeout)
	defer cancel()

	plan, err := h.Engine.PlanDeposit(ctx, engine.PlanParams(req))
	if err != nil {
		return h.planErr(c, err)
	}
	return c.JSON(http.StatusOK, renderPlan(plan))
}

// PlanWithdraw plans a withdrawal of an exact amount
func (h *Handlers) PlanWithdraw(c echo.Context) error {
	var req PlanRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), h.PlanTimeout)
	defer cancel()

	plan, err := h.Engine.PlanWithdraw(ctx, engine.PlanParams(req))
	if err != nil {
		return h.planErr(c, err)
	}
	return c.JSON(http.StatusOK, renderPlan(plan))
}

// MaxWithdraw estimates the largest withdrawable amount
// Query: pool, sender, token
func (h *Handlers) MaxWithdraw(c echo.Context) error {
	p := engine.PlanParams{
		Pool:   strings.TrimSpace(c.QueryParam("pool")),
		Sender: strings.TrimSpace(c.QueryParam("sender")),
		Token:  strings.TrimSpace(c.QueryParam("token")),
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), h.PlanTimeout)
	defer cancel()

	amount, err := h.Engine.PlanMaxWithdraw(ctx, p)
	if err != nil {
		return h.planErr(c, err)
	}
	a, _ := h.Engine.Asset(p.Token)
	return c.JSON(http.StatusOK, MaxWithdrawResponse{
		Pool:            strings.ToLower(p.Pool),
		Token:           a.Symbol,
		Amount:          amount.String(),
		AmountFormatted: models.FormatUnits(amount, a.Decimals),
	})
}

// ClaimRGT builds the governance token claim transaction
func (h *Handlers) ClaimRGT(c echo.Context) error {
	var req ClaimRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), h.PlanTimeout)
	defer cancel()

	tx, err := h.Engine.PlanClaimRGT(ctx, engine.PlanParams{Sender: req.Sender, Amount: req.Amount})
	if err != nil {
		return h.planErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"transaction": renderTx(tx)})
}

// Overview returns a pool's balances, optionally for one account (?account=0x…)
func (h *Handlers) Overview(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), h.PlanTimeout)
	defer cancel()

	ov, err := h.Engine.Overview(ctx, c.Param("pool"), c.QueryParam("account"))
	if err != nil {
		return h.planErr(c, err)
	}

	resp := OverviewResponse{
		Pool:              string(ov.Pool),
		FundBalanceUSD:    models.FormatUnits(ov.FundBalanceUSD, 18),
		WithdrawalFeeRate: models.FormatUnits(ov.WithdrawalFeeRate, 18),
	}
	if ov.AccountBalanceUSD != nil {
		resp.Account = ov.Account.Hex()
		resp.AccountBalanceUSD = models.FormatUnits(ov.AccountBalanceUSD, 18)
	}
	return c.JSON(http.StatusOK, resp)
}

// planErr maps planner failures to responses. Input problems are reported
// as such; everything else is a generic retry message.
func (h *Handlers) planErr(c echo.Context, err error) error {
	details := map[string]any{"kind": planner.Kind(err), "err": err.Error()}
	switch {
	case errors.Is(err, planner.ErrInvalidRequest), errors.Is(err, planner.ErrUnknownAsset):
		return h.err(c, http.StatusBadRequest, "invalid request", details)
	case errors.Is(err, planner.ErrInsufficientLiquidity):
		return h.err(c, http.StatusUnprocessableEntity, "not enough liquidity for this amount, try a smaller one", details)
	}

	h.logger().WithFields(logrus.Fields{
		"path": c.Path(),
		"kind": planner.Kind(err),
	}).WithError(err).Warn("Planning request failed")
	return h.err(c, http.StatusServiceUnavailable, "planning failed, please try again later", details)
}

func renderPlan(p *planner.Plan) PlanResponse {
	resp := PlanResponse{
		ID:              p.ID,
		Pool:            string(p.Pool),
		Direction:       string(p.Direction),
		Token:           p.Token.Symbol,
		Amount:          p.Amount.String(),
		AmountFormatted: models.FormatUnits(p.Amount, p.Token.Decimals),
		Contract:        p.Contract.Hex(),
		Transactions:    make([]TransactionResponse, len(p.Transactions)),
		Legs:            make([]LegResponse, len(p.Legs)),
		ExchangeFee:     bigString(p.ExchangeFee),
		ExchangeFeeETH:  models.FormatUnits(p.ExchangeFee, 18),
		Slippage:        p.Slippage.StringFixed(4),
	}
	for i, tx := range p.Transactions {
		resp.Transactions[i] = renderTx(tx)
	}
	for i, l := range p.Legs {
		resp.Legs[i] = LegResponse{
			Kind:        string(l.Kind),
			Currency:    l.Currency,
			Input:       bigString(l.InputAmount),
			Output:      bigString(l.OutputAmount),
			Orders:      len(l.Orders),
			ProtocolFee: bigString(l.ProtocolFee),
			Slippage:    l.Slippage.StringFixed(4),
		}
		if l.Surplus != nil && l.Surplus.Sign() > 0 {
			resp.Legs[i].Surplus = l.Surplus.String()
		}
	}
	return resp
}

func renderTx(tx planner.Transaction) TransactionResponse {
	return TransactionResponse{
		From:        tx.From.Hex(),
		To:          tx.To.Hex(),
		Data:        tx.Data,
		Value:       bigString(tx.Value),
		ValueSymbol: tx.ValueSymbol,
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
