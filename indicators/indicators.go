// Package indicators computes the market indicators the risk engine reads
// (ATR and a volatility band) and caches them per (symbol, timeframe).
package indicators

import "github.com/rustyeddy/riskengine/market"

// Indicator is a streaming calculation over closed candles.
type Indicator interface {
	// Name is a stable label such as "ATR(14)".
	Name() string

	// Warmup is the number of candles needed before Ready.
	Warmup() int

	Reset()

	// Update consumes the next closed candle.
	Update(c market.Candle)

	Ready() bool

	// Value is 0 until Ready.
	Value() float64
}

// Feed resets ind, runs candles through it in order and reports whether it
// warmed up.
func Feed(ind Indicator, candles []market.Candle) bool {
	ind.Reset()
	for _, c := range candles {
		ind.Update(c)
	}
	return ind.Ready()
}
