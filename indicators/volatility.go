package indicators

import (
	"fmt"
	"time"

	"github.com/rustyeddy/riskengine/market"
)

// ATR% band edges. A value equal to an edge falls in the higher band.
const (
	LowBelowPct    = 1.0
	MediumBelowPct = 2.5
	HighBelowPct   = 5.0
)

// Classify maps ATR as a percentage of price to a volatility band.
func Classify(atrPct float64) market.Volatility {
	switch {
	case atrPct < 0:
		return market.VolatilityUnknown
	case atrPct < LowBelowPct:
		return market.VolatilityLow
	case atrPct < MediumBelowPct:
		return market.VolatilityMedium
	case atrPct < HighBelowPct:
		return market.VolatilityHigh
	}
	return market.VolatilityExtreme
}

// Snapshot computes the indicator set for the last candle.
func Snapshot(symbol, timeframe string, candles []market.Candle, period int, now time.Time) (market.Indicators, error) {
	atr, err := ATRFunc(candles, period)
	if err != nil {
		return market.Indicators{}, fmt.Errorf("indicators %s/%s: %w", symbol, timeframe, err)
	}

	last := candles[len(candles)-1].Close
	ind := market.Indicators{
		Symbol:     symbol,
		Timeframe:  timeframe,
		LastPrice:  last,
		ATR:        atr,
		ComputedAt: now,
	}
	if last > 0 {
		ind.ATRPct = atr / last * 100
		ind.Volatility = Classify(ind.ATRPct)
	}
	return ind, nil
}
