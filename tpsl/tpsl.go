// Package tpsl derives stop-loss and take-profit prices from percentages or a
// risk:reward ratio, and the reverse.
package tpsl

import (
	"math"

	"github.com/rustyeddy/riskengine/pkg/errs"
	"github.com/rustyeddy/riskengine/trade"
)

type Options struct {
	TPPct  float64
	SLPct  float64
	RRR    float64
	UseRRR bool
}

func DefaultOptions() Options {
	return Options{TPPct: 3, SLPct: 5, RRR: 2}
}

type Levels struct {
	TakeProfitPrice float64 `json:"take_profit_price"`
	StopLossPrice   float64 `json:"stop_loss_price"`
	RiskAmount      float64 `json:"risk_amount"`       // per unit, |entry-stop|
	RewardAmount    float64 `json:"reward_amount"`     // per unit, |tp-entry|
	ActualRRR       float64 `json:"actual_rrr"`
	TPPct           float64 `json:"tp_pct"`
	SLPct           float64 `json:"sl_pct"`
}

// Compute places the stop SLPct away from entry on the loss side. The target
// is either TPPct away on the profit side, or RRR times the stop distance.
func Compute(entry float64, side trade.Side, o Options) (Levels, error) {
	if err := errs.Positive("entry_price", entry); err != nil {
		return Levels{}, err
	}
	if !side.Valid() {
		return Levels{}, errs.Invalid("side", side, "must be buy|sell")
	}
	if err := errs.First(
		errs.NonNegative("sl_pct", o.SLPct),
		errs.NonNegative("tp_pct", o.TPPct),
		errs.NonNegative("rrr", o.RRR),
	); err != nil {
		return Levels{}, err
	}

	sign := side.Sign()
	l := Levels{SLPct: o.SLPct}
	l.StopLossPrice = entry * (1 - sign*o.SLPct/100)
	l.RiskAmount = math.Abs(entry - l.StopLossPrice)

	if o.UseRRR {
		l.RewardAmount = l.RiskAmount * o.RRR
		l.TakeProfitPrice = entry + sign*l.RewardAmount
		l.TPPct = l.RewardAmount / entry * 100
	} else {
		l.TakeProfitPrice = entry * (1 + sign*o.TPPct/100)
		l.RewardAmount = math.Abs(l.TakeProfitPrice - entry)
		l.TPPct = o.TPPct
	}

	if l.RiskAmount > 0 {
		l.ActualRRR = l.RewardAmount / l.RiskAmount
	}
	return l, nil
}

// Validate reports whether sl < entry < tp for longs or sl > entry > tp for
// shorts.
func Validate(entry, sl, tp float64, side trade.Side) bool {
	if side.IsLong() {
		return sl < entry && entry < tp
	}
	return sl > entry && entry > tp
}

// FromPrices derives percentages and ratio from explicit prices. It returns
// false when either price is missing.
func FromPrices(entry, sl, tp float64, side trade.Side) (Levels, bool) {
	if entry <= 0 || sl <= 0 || tp <= 0 {
		return Levels{}, false
	}
	l := Levels{
		TakeProfitPrice: tp,
		StopLossPrice:   sl,
		RiskAmount:      math.Abs(entry - sl),
		RewardAmount:    math.Abs(tp - entry),
	}
	l.SLPct = l.RiskAmount / entry * 100
	l.TPPct = l.RewardAmount / entry * 100
	if l.RiskAmount > 0 {
		l.ActualRRR = l.RewardAmount / l.RiskAmount
	}
	return l, true
}
