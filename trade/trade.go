// Package trade holds the domain types shared by the engine packages:
// sides, market types, order references, trades, fills and positions.
package trade

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/riskengine/pkg/errs"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide accepts buy/sell and the long/short aliases.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long":
		return SideBuy, nil
	case "sell", "short":
		return SideSell, nil
	}
	return "", errs.Invalid("side", s, "must be buy|sell|long|short")
}

func (s Side) IsLong() bool { return s == SideBuy }

// Sign is +1 for buy and -1 for sell.
func (s Side) Sign() float64 {
	if s == SideSell {
		return -1
	}
	return 1
}

func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

type MarketType string

const (
	MarketSpot    MarketType = "spot"
	MarketFutures MarketType = "futures"
)

func ParseMarketType(s string) (MarketType, error) {
	switch MarketType(strings.ToLower(strings.TrimSpace(s))) {
	case MarketSpot, "":
		return MarketSpot, nil
	case MarketFutures:
		return MarketFutures, nil
	}
	return "", errs.Invalid("market_type", s, "must be spot|futures")
}

// Trade is the strategy-level record a Position is opened from.
type Trade struct {
	ID         string     `json:"id"`
	Exchange   string     `json:"exchange,omitempty"`
	MarketType MarketType `json:"market_type"`
	Symbol     string     `json:"symbol"`
	Side       Side       `json:"side"`
	EntryPrice float64    `json:"entry_price"`
	Qty        float64    `json:"qty"`
	Leverage   float64    `json:"leverage"`

	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`

	// Optional exit management carried into the position's RiskState.
	TrailingStop       *TrailingStop       `json:"trailing_stop,omitempty"`
	PartialTakeProfits []PartialTakeProfit `json:"partial_take_profits,omitempty"`

	Fees       float64 `json:"fees"`
	Commission float64 `json:"commission"`
}

// Fill is one closed slice of quantity used for realized PnL.
type Fill struct {
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Qty        float64 `json:"qty"`
	Fee        float64 `json:"fee"`
	Leverage   float64 `json:"leverage"`
}

func (f Fill) String() string {
	return fmt.Sprintf("%.8g@%.8g->%.8g x%.4g fee=%.4g", f.Qty, f.EntryPrice, f.ExitPrice, f.Leverage, f.Fee)
}
