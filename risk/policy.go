package risk

import (
	"time"

	"github.com/rustyeddy/riskengine/config"
	"github.com/rustyeddy/riskengine/market"
	"github.com/rustyeddy/riskengine/trade"
)

// Flag names a rule that fired during evaluation.
type Flag string

const (
	FlagKillSwitch          Flag = "KILL_SWITCH_ACTIVE"
	FlagInvalidSignal       Flag = "INVALID_SIGNAL"
	FlagInvalidPortfolio    Flag = "INVALID_PORTFOLIO"
	FlagDailyLoss           Flag = "DAILY_LOSS_LIMIT"
	FlagMaxDrawdown         Flag = "MAX_DRAWDOWN_EXCEEDED"
	FlagSymbolExposure      Flag = "SYMBOL_EXPOSURE_EXCEEDED"
	FlagTotalExposure       Flag = "TOTAL_EXPOSURE_EXCEEDED"
	FlagMaxActiveTrades     Flag = "MAX_ACTIVE_TRADES"
	FlagHighVolatility      Flag = "HIGH_VOLATILITY"
	FlagInsufficientBalance Flag = "INSUFFICIENT_BALANCE"
)

// Flags lists every flag in evaluation order.
var Flags = []Flag{
	FlagKillSwitch,
	FlagInvalidSignal,
	FlagInvalidPortfolio,
	FlagDailyLoss,
	FlagMaxDrawdown,
	FlagSymbolExposure,
	FlagTotalExposure,
	FlagMaxActiveTrades,
	FlagHighVolatility,
	FlagInsufficientBalance,
}

type AlertKind string

const (
	AlertKill    AlertKind = "kill"
	AlertWarning AlertKind = "warning"
	AlertInfo    AlertKind = "info"
)

type Alert struct {
	Kind    AlertKind `json:"kind" yaml:"kind"`
	Message string    `json:"message,omitempty" yaml:"message,omitempty"`
	At      time.Time `json:"at,omitempty" yaml:"at,omitempty"`
}

// PortfolioSnapshot is the account state at evaluation time. Percentages are
// 0..100.
type PortfolioSnapshot struct {
	Equity             float64 `json:"equity" yaml:"equity"`
	TotalExposureUSD   float64 `json:"total_exposure_usd" yaml:"total_exposure_usd"`
	ActiveTradesCount  int     `json:"active_trades_count" yaml:"active_trades_count"`
	DailyPnL           float64 `json:"daily_pnl" yaml:"daily_pnl"`
	CurrentDrawdownPct float64 `json:"current_drawdown_pct" yaml:"current_drawdown_pct"`
	PeakEquity         float64 `json:"peak_equity" yaml:"peak_equity"`
	MaxDrawdownPct     float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	Alerts             []Alert `json:"alerts,omitempty" yaml:"alerts,omitempty"`
}

// KillAlert reports whether the snapshot carries a kill alert.
func (s PortfolioSnapshot) KillAlert() bool {
	for _, a := range s.Alerts {
		if a.Kind == AlertKill {
			return true
		}
	}
	return false
}

// OpenTrade is the invested amount of one open trade.
type OpenTrade struct {
	Symbol   string  `json:"symbol" yaml:"symbol"`
	Invested float64 `json:"invested" yaml:"invested"`
}

// Context is everything Evaluate looks at. Indicators may be nil.
type Context struct {
	Settings   config.BotSettings `json:"settings" yaml:"settings"`
	Signal     market.Signal      `json:"signal" yaml:"signal"`
	Portfolio  PortfolioSnapshot  `json:"portfolio" yaml:"portfolio"`
	Indicators *market.Indicators `json:"indicators,omitempty" yaml:"indicators,omitempty"`
	OpenTrades []OpenTrade        `json:"open_trades,omitempty" yaml:"open_trades,omitempty"`
	USDBalance float64            `json:"usd_balance" yaml:"usd_balance"`
}

// Result is the outcome of Evaluate. A denial is a normal result, not an
// error.
type Result struct {
	Allowed         bool            `json:"allowed"`
	Reason          string          `json:"reason"`
	AdjustedCapital *float64        `json:"adjusted_capital,omitempty"`
	Flags           []Flag          `json:"flags"`
	Level           trade.RiskLevel `json:"risk_level"`
}

// Has reports whether f fired.
func (r Result) Has(f Flag) bool {
	for _, x := range r.Flags {
		if x == f {
			return true
		}
	}
	return false
}
