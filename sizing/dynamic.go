package sizing

import (
	"fmt"

	"github.com/rustyeddy/riskengine/market"
	"github.com/rustyeddy/riskengine/pkg/errs"
	"github.com/rustyeddy/riskengine/trade"
)

type Mode string

const (
	ModeFixed              Mode = "fixed"
	ModeRiskBased          Mode = "risk_based"
	ModeVolatilityAdjusted Mode = "volatility_adjusted"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeFixed, ModeRiskBased, ModeVolatilityAdjusted:
		return true
	}
	return false
}

// Bounds applied to the final position size.
const (
	MinCapitalFraction  = 0.01 // of base capital
	MaxBaseSizeMultiple = 1.2  // of the base position size
)

// VolatilityFactor is the capital multiplier for a volatility band. It is the
// one table used both here and by the risk volatility guard.
func VolatilityFactor(v market.Volatility) float64 {
	switch v {
	case market.VolatilityExtreme:
		return 0.5
	case market.VolatilityHigh:
		return 0.7
	case market.VolatilityMedium:
		return 0.9
	}
	return 1.0
}

// volatilityLevel grades a volatility band.
func volatilityLevel(v market.Volatility) trade.RiskLevel {
	switch v {
	case market.VolatilityExtreme:
		return trade.RiskHigh
	case market.VolatilityHigh:
		return trade.RiskMedium
	}
	return trade.RiskLow
}

// Performance summarizes recent closed trades. WinRate is a percentage.
type Performance struct {
	TotalTrades       int     `json:"total_trades"`
	WinRate           float64 `json:"win_rate"`
	ConsecutiveWins   int     `json:"consecutive_wins"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
}

type Drawdown struct {
	CurrentPct float64 `json:"current_pct"`
	MaxPct     float64 `json:"max_pct"`
}

// Context is the input to Adjust.
type Context struct {
	BaseCapital float64
	RiskPct     float64
	Mode        Mode
	Volatility  market.Volatility
	Performance *Performance
	Drawdown    *Drawdown
}

// Adjustment is the output of Adjust. AdjustedCapital always satisfies
// PositionSize == AdjustedCapital*RiskPct/100.
type Adjustment struct {
	BasePositionSize float64         `json:"base_position_size"`
	AdjustedCapital  float64         `json:"adjusted_capital"`
	PositionSize     float64         `json:"position_size"`
	ReductionFactor  float64         `json:"reduction_factor"`
	Reasons          []string        `json:"reasons,omitempty"`
	RiskLevel        trade.RiskLevel `json:"risk_level"`
}

// Adjust scales the base position by the stress factors the mode enables.
func Adjust(c Context) (Adjustment, error) {
	if err := errs.First(
		errs.Positive("base_capital", c.BaseCapital),
		errs.Positive("risk_pct", c.RiskPct),
	); err != nil {
		return Adjustment{}, err
	}
	if !c.Mode.Valid() {
		return Adjustment{}, errs.Invalid("sizing_mode", c.Mode, "unknown")
	}

	base := c.BaseCapital * c.RiskPct / 100
	a := Adjustment{
		BasePositionSize: base,
		AdjustedCapital:  c.BaseCapital,
		PositionSize:     base,
		ReductionFactor:  1,
		RiskLevel:        trade.RiskLow,
	}
	if c.Mode == ModeFixed {
		return a, nil
	}

	capital := c.BaseCapital
	apply := func(factor float64, level trade.RiskLevel, reason string) {
		capital *= factor
		a.ReductionFactor *= factor
		a.RiskLevel = a.RiskLevel.Escalate(level)
		a.Reasons = append(a.Reasons, reason)
	}

	switch c.Mode {
	case ModeVolatilityAdjusted:
		if c.Volatility.Known() {
			if f := VolatilityFactor(c.Volatility); f != 1 {
				apply(f, volatilityLevel(c.Volatility),
					fmt.Sprintf("%s volatility: size x%.2f", c.Volatility, f))
			}
		}

	case ModeRiskBased:
		if f, level, reason, ok := performanceFactor(c.Performance); ok {
			apply(f, level, reason)
		}
		if f, level, reason, ok := drawdownFactor(c.Drawdown); ok {
			apply(f, level, reason)
		}
	}

	lower := c.BaseCapital * MinCapitalFraction
	upper := base * MaxBaseSizeMultiple
	size := capital * c.RiskPct / 100
	if size < lower {
		size = lower
		a.Reasons = append(a.Reasons, fmt.Sprintf("size raised to floor %.2f", lower))
	}
	if size > upper {
		size = upper
		a.Reasons = append(a.Reasons, fmt.Sprintf("size capped at %.2f", upper))
	}

	a.PositionSize = size
	a.AdjustedCapital = size * 100 / c.RiskPct
	return a, nil
}

// performanceFactor returns the first matching performance rule.
func performanceFactor(p *Performance) (float64, trade.RiskLevel, string, bool) {
	if p == nil {
		return 0, "", "", false
	}
	switch {
	case p.ConsecutiveLosses >= 5:
		return 0.5, trade.RiskHigh, fmt.Sprintf("%d consecutive losses: size x0.50", p.ConsecutiveLosses), true
	case p.ConsecutiveLosses >= 3:
		return 0.7, trade.RiskMedium, fmt.Sprintf("%d consecutive losses: size x0.70", p.ConsecutiveLosses), true
	case p.TotalTrades > 0 && p.WinRate < 30:
		return 0.6, trade.RiskMedium, fmt.Sprintf("win rate %.1f%% below 30%%: size x0.60", p.WinRate), true
	case p.ConsecutiveWins >= 5 && p.WinRate > 70:
		return 1.1, trade.RiskLow, fmt.Sprintf("%d consecutive wins at %.1f%% win rate: size x1.10", p.ConsecutiveWins, p.WinRate), true
	}
	return 0, "", "", false
}

func drawdownFactor(d *Drawdown) (float64, trade.RiskLevel, string, bool) {
	if d == nil || d.MaxPct <= 0 {
		return 0, "", "", false
	}
	proximity := d.CurrentPct / d.MaxPct
	switch {
	case proximity > 0.9:
		return 0.4, trade.RiskCritical, fmt.Sprintf("drawdown at %.0f%% of limit: size x0.40", proximity*100), true
	case proximity > 0.8:
		return 0.6, trade.RiskHigh, fmt.Sprintf("drawdown at %.0f%% of limit: size x0.60", proximity*100), true
	case proximity > 0.7:
		return 0.8, trade.RiskMedium, fmt.Sprintf("drawdown at %.0f%% of limit: size x0.80", proximity*100), true
	case d.CurrentPct > 0.5*d.MaxPct:
		return 0.9, trade.RiskLow, "drawdown above half of limit: size x0.90", true
	}
	return 0, "", "", false
}

// PerformanceFromResults derives Performance from closed-trade PnLs in
// chronological order. Break-even trades end both streaks.
func PerformanceFromResults(pnls []float64) Performance {
	var p Performance
	wins := 0
	for _, v := range pnls {
		p.TotalTrades++
		switch {
		case v > 0:
			wins++
			p.ConsecutiveWins++
			p.ConsecutiveLosses = 0
		case v < 0:
			p.ConsecutiveLosses++
			p.ConsecutiveWins = 0
		default:
			p.ConsecutiveWins = 0
			p.ConsecutiveLosses = 0
		}
	}
	if p.TotalTrades > 0 {
		p.WinRate = float64(wins) / float64(p.TotalTrades) * 100
	}
	return p
}
