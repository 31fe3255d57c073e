// Package plan turns an approved signal into the numbers the order layer
// needs: capital after stress adjustments, the base size, the DCA ladder and
// the exit levels.
package plan

import (
	"fmt"

	"github.com/rustyeddy/riskengine/dca"
	"github.com/rustyeddy/riskengine/market"
	"github.com/rustyeddy/riskengine/risk"
	"github.com/rustyeddy/riskengine/sizing"
	"github.com/rustyeddy/riskengine/tpsl"
	"github.com/rustyeddy/riskengine/trade"
)

type Input struct {
	Risk risk.Context
	// Performance of recent closed trades, used by risk_based sizing.
	Performance *sizing.Performance
}

// Plan is the outcome of Build. Only Risk is set when the trade is denied.
type Plan struct {
	Symbol     string     `json:"symbol"`
	Side       trade.Side `json:"side"`
	EntryPrice float64    `json:"entry_price"`

	Risk       risk.Result        `json:"risk"`
	Adjustment *sizing.Adjustment `json:"adjustment,omitempty"`
	Sizing     *sizing.Result     `json:"sizing,omitempty"`
	Ladder     *dca.Ladder        `json:"ladder,omitempty"`
	Exits      *tpsl.Levels       `json:"exits,omitempty"`

	PlannedRiskUSD float64 `json:"planned_risk_usd"`
	PlannedRiskPct float64 `json:"planned_risk_pct"`
	PlannedRR      float64 `json:"planned_rr"`

	marketType      trade.MarketType
	leverage        float64
	trailingStopPct float64
}

func (p Plan) Approved() bool { return p.Risk.Allowed }

// Build evaluates the risk policy and, when the trade is allowed, sizes it.
// A denial is not an error; errors mean the settings or signal could not be
// sized.
func Build(in Input) (Plan, error) {
	c := in.Risk
	s := c.Settings

	pl := Plan{
		Symbol:          c.Signal.Symbol,
		Side:            c.Signal.Side,
		EntryPrice:      c.Signal.EntryPrice,
		Risk:            risk.Evaluate(c),
		marketType:      s.MarketType,
		leverage:        s.Leverage,
		trailingStopPct: s.TrailingStopPct,
	}
	if !pl.Risk.Allowed {
		return pl, nil
	}

	// The volatility guard already scaled capital; do not scale it twice.
	capital := s.Capital
	vol := market.VolatilityUnknown
	if c.Indicators != nil {
		vol = c.Indicators.Volatility
	}
	if pl.Risk.AdjustedCapital != nil {
		capital = *pl.Risk.AdjustedCapital
		vol = market.VolatilityUnknown
	}

	adj, err := sizing.Adjust(sizing.Context{
		BaseCapital: capital,
		RiskPct:     s.RiskPercentage,
		Mode:        s.SizingMode,
		Volatility:  vol,
		Performance: in.Performance,
		Drawdown: &sizing.Drawdown{
			CurrentPct: c.Portfolio.CurrentDrawdownPct,
			MaxPct:     s.Limits().MaxDrawdownPct,
		},
	})
	if err != nil {
		return pl, fmt.Errorf("plan %s: dynamic sizing: %w", pl.Symbol, err)
	}
	pl.Adjustment = &adj

	initialPct := s.InitialEntryPct
	if s.DCALevels == 0 {
		initialPct = 100
	}
	sz, err := sizing.Size(sizing.Params{
		Balance:    adj.AdjustedCapital,
		RiskPct:    s.RiskPercentage,
		LossPct:    s.StopLossPct,
		Leverage:   s.Leverage,
		EntryPrice: pl.EntryPrice,
		InitialPct: initialPct,
	})
	if err != nil {
		return pl, fmt.Errorf("plan %s: sizing: %w", pl.Symbol, err)
	}
	pl.Sizing = &sz

	if s.DCALevels > 0 {
		ladder, err := dca.Levels(dca.Params{
			Side:           pl.Side,
			EntryPrice:     pl.EntryPrice,
			TotalAmount:    sz.PositionSize,
			InitialAmount:  sz.InitialAmount,
			Levels:         s.DCALevels,
			DropPct:        s.DCADropPct,
			StopLossMethod: s.StopLossMethod,
			SLPct:          s.StopLossPct,
			MaxAllowedLoss: sz.MaxLossAmount,
		})
		if err != nil {
			return pl, fmt.Errorf("plan %s: dca: %w", pl.Symbol, err)
		}
		pl.Ladder = &ladder
	}

	exits, err := tpsl.Compute(pl.EntryPrice, pl.Side, tpsl.Options{
		TPPct:  s.TakeProfitPct,
		SLPct:  s.StopLossPct,
		RRR:    s.RiskRewardRatio,
		UseRRR: s.UseRiskReward,
	})
	if err != nil {
		return pl, fmt.Errorf("plan %s: exits: %w", pl.Symbol, err)
	}
	pl.Exits = &exits

	lev := 1.0
	if s.MarketType == trade.MarketFutures {
		lev = s.Leverage
	}
	pl.PlannedRiskUSD = risk.PlannedRiskUSD(sz.Quantity, pl.EntryPrice, exits.StopLossPrice, lev)
	pl.PlannedRiskPct = risk.RiskPct(pl.PlannedRiskUSD, c.Portfolio.Equity)
	pl.PlannedRR = risk.RR(pl.EntryPrice, exits.StopLossPrice, exits.TakeProfitPrice)
	return pl, nil
}

// Trade is the initial entry the order layer should place. It is the zero
// Trade for a denied plan.
func (p Plan) Trade(id string) trade.Trade {
	if !p.Approved() || p.Sizing == nil || p.Exits == nil {
		return trade.Trade{}
	}
	mt := p.marketType
	if mt == "" {
		mt = trade.MarketSpot
	}
	sl := p.Exits.StopLossPrice
	tp := p.Exits.TakeProfitPrice
	t := trade.Trade{
		ID:         id,
		MarketType: mt,
		Symbol:     p.Symbol,
		Side:       p.Side,
		EntryPrice: p.EntryPrice,
		Qty:        p.Sizing.InitialAmount / p.EntryPrice,
		Leverage:   p.leverage,
		StopLoss:   &sl,
		TakeProfit: &tp,
	}
	// The trailing stop arms once price has moved far enough for its stop
	// to sit at break-even.
	if p.trailingStopPct > 0 {
		t.TrailingStop = &trade.TrailingStop{
			ActivationPrice: p.EntryPrice / (1 - p.Side.Sign()*p.trailingStopPct/100),
			CallbackPct:     p.trailingStopPct,
		}
	}
	return t
}
