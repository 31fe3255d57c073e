// Package dca expands a position into a ladder of averaging entries.
package dca

import (
	"math"

	"github.com/rustyeddy/riskengine/pkg/errs"
	"github.com/rustyeddy/riskengine/trade"
)

type StopLossMethod string

const (
	StopLossAveragePosition StopLossMethod = "average_position"
	StopLossInitialEntry    StopLossMethod = "initial_entry"
)

func (m StopLossMethod) Valid() bool {
	return m == StopLossAveragePosition || m == StopLossInitialEntry
}

// Params describes a ladder. Side defaults to buy.
type Params struct {
	Side          trade.Side
	EntryPrice    float64
	TotalAmount   float64
	InitialAmount float64
	Levels        int
	DropPct       float64

	// Per-level stop loss. Empty method disables it. MaxAllowedLoss falls
	// back to TotalAmount*SLPct/100 when it is zero.
	StopLossMethod StopLossMethod
	SLPct          float64
	MaxAllowedLoss float64
}

type Level struct {
	Index                int     `json:"index"`
	DropPct              float64 `json:"drop_pct"`
	Price                float64 `json:"price"`
	Amount               float64 `json:"amount"`
	Quantity             float64 `json:"quantity"`
	CumulativeInvestment float64 `json:"cumulative_investment"`
	CumulativeQuantity   float64 `json:"cumulative_quantity"`
	AverageEntry         float64 `json:"average_entry"`

	StopLoss   *float64 `json:"stop_loss,omitempty"`
	ActualLoss float64  `json:"actual_loss"`
}

type Ladder struct {
	Levels            []Level `json:"levels,omitempty"`
	PerLevelAmount    float64 `json:"per_level_amount"`
	TotalInvested     float64 `json:"total_invested"`
	TotalQuantity     float64 `json:"total_quantity"`
	FinalAverageEntry float64 `json:"final_average_entry"`
}

// Levels builds the ladder. The running totals start from the initial entry
// so the last level's investment equals TotalAmount.
func Levels(p Params) (Ladder, error) {
	side := p.Side
	if side == "" {
		side = trade.SideBuy
	}
	if !side.Valid() {
		return Ladder{}, errs.Invalid("side", p.Side, "must be buy|sell")
	}
	if p.Levels < 1 {
		return Ladder{}, errs.Invalid("levels", p.Levels, "must be >= 1")
	}
	if err := errs.First(
		errs.Positive("entry_price", p.EntryPrice),
		errs.Positive("drop_pct", p.DropPct),
		errs.NonNegative("total_amount", p.TotalAmount),
		errs.NonNegative("initial_amount", p.InitialAmount),
		errs.NonNegative("sl_pct", p.SLPct),
		errs.NonNegative("max_allowed_loss", p.MaxAllowedLoss),
	); err != nil {
		return Ladder{}, err
	}
	if p.InitialAmount > p.TotalAmount {
		return Ladder{}, errs.Invalid("initial_amount", p.InitialAmount, "exceeds total_amount")
	}
	if side.IsLong() && p.DropPct*float64(p.Levels) >= 100 {
		return Ladder{}, errs.Invalid("drop_pct", p.DropPct, "drives the last level to a non-positive price")
	}
	if p.StopLossMethod != "" && !p.StopLossMethod.Valid() {
		return Ladder{}, errs.Invalid("stop_loss_method", p.StopLossMethod, "unknown")
	}

	maxLoss := p.MaxAllowedLoss
	if maxLoss == 0 {
		maxLoss = p.TotalAmount * p.SLPct / 100
	}

	out := Ladder{
		Levels:         make([]Level, 0, p.Levels),
		PerLevelAmount: (p.TotalAmount - p.InitialAmount) / float64(p.Levels),
	}

	cumInv := p.InitialAmount
	cumQty := p.InitialAmount / p.EntryPrice
	sign := side.Sign()

	for i := 1; i <= p.Levels; i++ {
		drop := p.DropPct * float64(i)
		price := p.EntryPrice * (1 - sign*drop/100)
		qty := out.PerLevelAmount / price

		cumInv += out.PerLevelAmount
		cumQty += qty

		lvl := Level{
			Index:                i,
			DropPct:              drop,
			Price:                price,
			Amount:               out.PerLevelAmount,
			Quantity:             qty,
			CumulativeInvestment: cumInv,
			CumulativeQuantity:   cumQty,
		}
		if cumQty > 0 {
			lvl.AverageEntry = cumInv / cumQty
		}

		if p.StopLossMethod != "" && maxLoss > 0 && cumQty > 0 {
			stop, loss := levelStop(side, p.StopLossMethod, p.EntryPrice, lvl.AverageEntry, cumQty, maxLoss)
			lvl.StopLoss = &stop
			lvl.ActualLoss = loss
		}

		out.Levels = append(out.Levels, lvl)
	}

	last := out.Levels[len(out.Levels)-1]
	out.TotalInvested = last.CumulativeInvestment
	out.TotalQuantity = last.CumulativeQuantity
	out.FinalAverageEntry = last.AverageEntry
	return out, nil
}

// levelStop places the stop so that the whole ladder up to this level loses at
// most maxLoss. A stop that lands on the wrong side of the average is pulled
// back to 1% beyond it.
func levelStop(side trade.Side, m StopLossMethod, entry, avg, qty, maxLoss float64) (float64, float64) {
	ref := avg
	if m == StopLossInitialEntry {
		ref = entry
	}
	sign := side.Sign()
	stop := ref - sign*maxLoss/qty

	if side.IsLong() && stop >= avg {
		stop = avg * 0.99
	}
	if !side.IsLong() && stop <= avg {
		stop = avg * 1.01
	}
	if stop < 0 {
		stop = 0
	}

	loss := math.Min(math.Abs(avg-stop)*qty, maxLoss)
	return stop, loss
}
