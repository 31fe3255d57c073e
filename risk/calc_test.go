package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRR(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		entry, stop, take float64
		want              float64
	}{
		{"long 2R", 100, 95, 110, 2},
		{"short 1.5R", 100, 104, 94, 1.5},
		{"no risk", 100, 100, 110, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, RR(tt.entry, tt.stop, tt.take), 1e-12)
		})
	}
}

func TestPlannedRiskUSD(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 50.0, PlannedRiskUSD(10, 100, 95, 1), 1e-9)
	assert.InDelta(t, 40.0, PlannedRiskUSD(2, 100, 104, 5), 1e-9)
	assert.InDelta(t, 50.0, PlannedRiskUSD(10, 100, 95, 0), 1e-9, "leverage below 1 counts as 1")
	assert.Zero(t, PlannedRiskUSD(10, 100, 0, 1), "no stop, no planned risk")
}

func TestRiskPct(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2.0, RiskPct(200, 10000), 1e-12)
	assert.Zero(t, RiskPct(200, 0))
	assert.Zero(t, RiskPct(200, -5))
}

func TestSymbolExposureUSD(t *testing.T) {
	t.Parallel()

	trades := []OpenTrade{
		{Symbol: "BTCUSDT", Invested: 100},
		{Symbol: "ETHUSDT", Invested: 40},
		{Symbol: "BTCUSDT", Invested: 60},
	}
	assert.Equal(t, 160.0, SymbolExposureUSD(trades, "BTCUSDT"))
	assert.Zero(t, SymbolExposureUSD(trades, "SOLUSDT"))
	assert.Zero(t, SymbolExposureUSD(nil, "BTCUSDT"))
}
