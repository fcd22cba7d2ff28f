package strategy

import (
	"math"

	"signaldesk/internal/types"
)

const (
	// FeeRate 是保守的 maker 手续费估计（1bp），不是实时费率。
	FeeRate = 0.0001
	// MinLimitPrice keeps maker limit prices strictly positive.
	MinLimitPrice = 0.01
)

// ComputeProposal derives an order proposal from the latest ticker, signal and
// preferences. It returns nil when nothing actionable can be derived. The
// function is pure: identical inputs always give identical output.
func ComputeProposal(ticker types.Ticker, sig types.Signal, prefs types.Preferences) *types.OrderProposal {
	if !sig.Side.Actionable() {
		return nil
	}
	price := ticker.Price
	if !types.IsPositiveFinite(price) {
		return nil
	}

	rawQty, ok := baseQuantity(price, sig, prefs)
	if !ok {
		return nil
	}
	qty := decFromFloat(rawQty).Round(QuantityPlaces)
	if !qty.IsPositive() {
		return nil
	}

	priceDec := decFromFloat(price)
	notional := qty.Mul(priceDec)
	fees := notional.Mul(decFromFloat(FeeRate))

	p := &types.OrderProposal{
		Symbol:     ticker.Symbol,
		Side:       sig.Side,
		Quantity:   decToFloat(qty),
		Notional:   decToFloat(notional.Round(CurrencyPlaces)),
		Fees:       decToFloat(fees.Round(CurrencyPlaces)),
		StopPrice:  roundCurrencyPtr(sig.StopPrice),
		TakeProfit: roundCurrencyPtr(sig.TakeProfit),
		Raw: types.ProposalRaw{
			Quantity: rawQty,
			Notional: decToFloat(notional),
			Fees:     decToFloat(fees),
		},
	}
	if p.Symbol == "" {
		p.Symbol = sig.Symbol
	}

	if prefs.PreferMaker {
		limit := limitPrice(price, sig.Side, prefs.SlippageBudget)
		p.Raw.LimitPrice = limit
		rounded := RoundCurrency(limit)
		if rounded < MinLimitPrice {
			rounded = MinLimitPrice
		}
		p.LimitPrice = &rounded
	}
	return p
}

// baseQuantity prefers the server-sized quantity, otherwise derives it from
// the exposure cap scaled by risk level.
func baseQuantity(price float64, sig types.Signal, prefs types.Preferences) (float64, bool) {
	if q := sig.SuggestedQtyBase; q != nil && types.IsPositiveFinite(*q) {
		return *q, true
	}
	maxExposure := prefs.MaxExposure
	if !isFinite(maxExposure) || maxExposure < 0 {
		maxExposure = 0
	}
	exposureCap := maxExposure
	if t := sig.TargetExposureUSD; t != nil && isFinite(*t) {
		exposureCap = math.Min(*t, maxExposure)
	}
	target := exposureCap * types.Clamp01(prefs.RiskLevel)
	if !types.IsPositiveFinite(target) {
		return 0, false
	}
	qty := target / price
	if !types.IsPositiveFinite(qty) {
		return 0, false
	}
	return qty, true
}

// limitPrice offsets the market price by the slippage budget: below market
// for BUY, above for SELL, never under MinLimitPrice.
func limitPrice(price float64, side types.Side, slippageBps float64) float64 {
	if !isFinite(slippageBps) || slippageBps < 0 {
		slippageBps = 0
	}
	priceDec := decFromFloat(price)
	offset := priceDec.Mul(decFromFloat(slippageBps)).Div(decTenThousand)
	if side == types.SideBuy {
		offset = offset.Neg()
	}
	limit := decToFloat(priceDec.Add(offset))
	return math.Max(limit, MinLimitPrice)
}
