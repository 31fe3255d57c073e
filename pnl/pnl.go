// Package pnl computes realized and unrealized profit for positions, trades
// and fills. Degenerate inputs produce zero rather than NaN.
package pnl

import "github.com/rustyeddy/riskengine/trade"

// Unrealized is the mark-to-market profit of p at lastPrice. Leverage only
// applies to futures positions.
func Unrealized(p trade.Position, lastPrice float64) float64 {
	if lastPrice <= 0 || p.AvgEntryPrice <= 0 || p.Qty <= 0 {
		return 0
	}
	v := (lastPrice - p.AvgEntryPrice) * p.Qty * p.Side.Sign()
	if p.MarketType == trade.MarketFutures && p.Leverage > 0 {
		v *= p.Leverage
	}
	return v
}

// Realized sums the profit of closed fills net of fees.
func Realized(fills []trade.Fill, side trade.Side) float64 {
	total := 0.0
	for _, f := range fills {
		base := (f.ExitPrice - f.EntryPrice) * f.Qty * side.Sign()
		if f.Leverage > 1 {
			base *= f.Leverage
		}
		total += base - f.Fee
	}
	return total
}

// RealizedFromTrade closes the whole trade at exitPrice, net of both fees
// and commission.
func RealizedFromTrade(t trade.Trade, exitPrice float64) float64 {
	return Realized([]trade.Fill{{
		EntryPrice: t.EntryPrice,
		ExitPrice:  exitPrice,
		Qty:        t.Qty,
		Fee:        t.Fees + t.Commission,
		Leverage:   t.Leverage,
	}}, t.Side)
}

type Result struct {
	Unrealized   float64 `json:"unrealized"`
	Realized     float64 `json:"realized"`
	Total        float64 `json:"total"`
	EntryCost    float64 `json:"entry_cost"`
	CurrentValue float64 `json:"current_value"`
	Pct          float64 `json:"pct"`
}

// ForPosition values p at lastPrice.
func ForPosition(p trade.Position, lastPrice float64) Result {
	lev := p.Leverage
	if lev <= 0 {
		lev = 1
	}
	r := Result{
		Unrealized:   Unrealized(p, lastPrice),
		Realized:     p.RealizedPnlUSD,
		EntryCost:    p.AvgEntryPrice * p.Qty * lev,
		CurrentValue: lastPrice * p.Qty * lev,
	}
	r.Total = r.Unrealized + r.Realized
	if r.EntryCost > 0 {
		r.Pct = r.Total / r.EntryCost * 100
	}
	return r
}
