// Package sizing converts capital and risk tolerance into position sizes and
// shrinks them under volatility, performance and drawdown stress.
package sizing

import (
	"math"

	"github.com/rustyeddy/riskengine/pkg/errs"
)

// DefaultMaxAllocationPct caps a position at this share of the balance.
const DefaultMaxAllocationPct = 95

type Params struct {
	Balance    float64
	RiskPct    float64 // percent of balance we are willing to lose
	LossPct    float64 // stop distance in percent
	Leverage   float64
	EntryPrice float64
	InitialPct float64 // percent of the position bought at the first entry
}

type Result struct {
	MaxLossAmount   float64 `json:"max_loss_amount"`
	PositionSize    float64 `json:"position_size"`
	MarginUsed      float64 `json:"margin_used"`
	InitialAmount   float64 `json:"initial_amount"`
	RemainingAmount float64 `json:"remaining_amount"`
	Quantity        float64 `json:"quantity"`         // PositionSize in base units at EntryPrice
}

// Size computes the base position for a trade. The position is the amount
// that loses MaxLossAmount when price moves LossPct against it, capped at
// 95% of the balance.
func Size(p Params) (Result, error) {
	if err := errs.First(
		errs.NonNegative("balance", p.Balance),
		errs.NonNegative("risk_pct", p.RiskPct),
		errs.Positive("loss_pct", p.LossPct),
		errs.Positive("leverage", p.Leverage),
		errs.Positive("entry_price", p.EntryPrice),
		errs.NonNegative("initial_pct", p.InitialPct),
	); err != nil {
		return Result{}, err
	}
	if p.InitialPct > 100 {
		return Result{}, errs.Invalid("initial_pct", p.InitialPct, "must be <= 100")
	}

	var r Result
	r.MaxLossAmount = p.Balance * p.RiskPct / 100
	r.PositionSize = math.Min(r.MaxLossAmount/(p.LossPct/100), p.Balance*DefaultMaxAllocationPct/100)
	r.MarginUsed = r.PositionSize / p.Leverage
	r.InitialAmount = r.PositionSize * p.InitialPct / 100
	r.RemainingAmount = r.PositionSize - r.InitialAmount
	r.Quantity = r.PositionSize / p.EntryPrice
	return r, nil
}

// Validate reports whether 0 < size <= balance*maxPct/100. A non-positive
// maxPct means DefaultMaxAllocationPct.
func Validate(size, balance, maxPct float64) bool {
	if maxPct <= 0 {
		maxPct = DefaultMaxAllocationPct
	}
	return size > 0 && size <= balance*maxPct/100
}
