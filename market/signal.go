// Package market holds the market-side inputs of the engine: trade signals,
// candles and indicator snapshots.
package market

import (
	"strings"
	"time"

	"github.com/rustyeddy/riskengine/pkg/errs"
	"github.com/rustyeddy/riskengine/trade"
)

// Signal is a trade candidate produced by a strategy.
type Signal struct {
	Symbol     string     `json:"symbol" yaml:"symbol"`
	Side       trade.Side `json:"side" yaml:"side"`
	Confidence float64    `json:"confidence" yaml:"confidence"`
	EntryPrice float64    `json:"entry_price" yaml:"entry_price"`
}

func (s Signal) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return errs.Invalid("signal.symbol", s.Symbol, "is required")
	}
	if !s.Side.Valid() {
		return errs.Invalid("signal.side", s.Side, "must be buy|sell")
	}
	return errs.Positive("signal.entry_price", s.EntryPrice)
}

type Volatility string

const (
	VolatilityUnknown Volatility = ""
	VolatilityLow     Volatility = "LOW"
	VolatilityMedium  Volatility = "MEDIUM"
	VolatilityHigh    Volatility = "HIGH"
	VolatilityExtreme Volatility = "EXTREME"
)

func (v Volatility) Known() bool {
	switch v {
	case VolatilityLow, VolatilityMedium, VolatilityHigh, VolatilityExtreme:
		return true
	}
	return false
}

// Elevated reports HIGH or EXTREME.
func (v Volatility) Elevated() bool {
	return v == VolatilityHigh || v == VolatilityExtreme
}

// Indicators is a point-in-time indicator snapshot for one symbol/timeframe.
type Indicators struct {
	Symbol     string     `json:"symbol" yaml:"symbol"`
	Timeframe  string     `json:"timeframe" yaml:"timeframe"`
	LastPrice  float64    `json:"last_price" yaml:"last_price"`
	ATR        float64    `json:"atr" yaml:"atr"`
	ATRPct     float64    `json:"atr_pct" yaml:"atr_pct"`
	Volatility Volatility `json:"volatility" yaml:"volatility"`
	ComputedAt time.Time  `json:"computed_at" yaml:"computed_at"`
}
