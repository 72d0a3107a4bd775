package planner

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// candidate is a fund currency that can be drawn on during a withdrawal.
// balance is decremented as legs consume it.
type candidate struct {
	asset   models.Asset
	balance *big.Int
	// price is USD per whole unit, scaled by 1e18
	price *big.Int
}

// usdValue converts amount of the candidate to USD scaled by 1e18
func (c *candidate) usdValue(amount *big.Int) *big.Int {
	v := new(big.Int).Mul(amount, c.price)
	return v.Div(v, models.Pow10(c.asset.Decimals))
}

// amountForUSD converts a USD value scaled by 1e18 into base units
func (c *candidate) amountForUSD(usd *big.Int) *big.Int {
	if c.price.Sign() == 0 {
		return new(big.Int)
	}
	v := new(big.Int).Mul(usd, models.Pow10(c.asset.Decimals))
	return v.Div(v, c.price)
}

func (c *candidate) consume(amount *big.Int) error {
	if amount.Cmp(c.balance) > 0 {
		return fmt.Errorf("leg draws %s %s but only %s is available", amount, c.asset.Symbol, c.balance)
	}
	c.balance.Sub(c.balance, amount)
	return nil
}

// buildCandidates totals each currency's raw and pooled balances. Currencies
// with nothing available or no known asset are left out.
func (p *Planner) buildCandidates(snap *models.FundSnapshot) []*candidate {
	out := make([]*candidate, 0, len(snap.Currencies))
	for i, sym := range snap.Currencies {
		total := new(big.Int).Set(zeroIfNil(snap.RawBalances[i]))
		for _, b := range snap.PoolBalances[i] {
			total.Add(total, zeroIfNil(b))
		}
		if total.Sign() <= 0 {
			continue
		}
		asset, ok := p.chain.Asset(sym)
		if !ok {
			p.logger.WithField("currency", sym).Warn("Fund holds unknown currency, ignoring")
			continue
		}
		out = append(out, &candidate{
			asset:   asset,
			balance: total,
			price:   new(big.Int).Set(zeroIfNil(snap.Prices[i])),
		})
	}
	return out
}

func findCandidate(cands []*candidate, symbol string) *candidate {
	for _, c := range cands {
		if c.asset.Symbol == symbol {
			return c
		}
	}
	return nil
}

// rankedQuote is an order-book quote against one candidate
type rankedQuote struct {
	cand  *candidate
	quote *models.AggregatorQuote
	// rank is maker output per USD of input, scaled by 1e18; nil when the
	// input is worth nothing
	rank *big.Int
}

func newRankedQuote(c *candidate, q *models.AggregatorQuote) rankedQuote {
	rq := rankedQuote{cand: c, quote: q}
	usd := c.usdValue(q.TakerFilled)
	if usd.Sign() > 0 {
		r := new(big.Int).Mul(q.MakerFilled, models.Pow10(18))
		rq.rank = r.Div(r, usd)
	}
	return rq
}

// sortByRank orders quotes best output per USD first. Ties keep snapshot
// order and unpriced quotes go last.
func sortByRank(quotes []rankedQuote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		a, b := quotes[i].rank, quotes[j].rank
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.Cmp(b) > 0
	})
}

func (p *Planner) quoteCandidates(ctx context.Context, cands []*candidate, buy models.Asset, sellAmount func(*candidate) *big.Int, buyAmount *big.Int) ([]rankedQuote, error) {
	buyToken, err := p.orderBookToken(buy)
	if err != nil {
		return nil, err
	}

	quotes := make([]rankedQuote, 0, len(cands))
	for _, c := range cands {
		if c.asset.Symbol == buy.Symbol || c.balance.Sign() == 0 {
			continue
		}
		sell := sellAmount(c)
		if sell.Sign() <= 0 {
			continue
		}
		sellToken, err := p.orderBookToken(c.asset)
		if err != nil {
			return nil, err
		}

		q, err := p.aggregator.SwapQuote(ctx, models.AggregatorRequest{
			SellToken:  sellToken,
			BuyToken:   buyToken,
			SellAmount: sell,
			BuyAmount:  buyAmount,
		})
		p.metrics.OracleCall("aggregator_quote", err)
		log := p.logger.WithFields(logrus.Fields{"sell": c.asset.Symbol, "buy": buy.Symbol})
		if err != nil {
			log.WithError(err).Debug("No order-book quote for candidate")
			continue
		}
		if q.InputFilled.Cmp(sell) > 0 {
			log.WithField("filled", q.InputFilled).Warn("Quote fills more input than offered, ignoring")
			continue
		}
		if q.MakerFilled.Sign() == 0 {
			continue
		}
		quotes = append(quotes, newRankedQuote(c, q))
	}

	sortByRank(quotes)
	return quotes, nil
}
