package plan

import (
	"testing"

	"github.com/rustyeddy/riskengine/config"
	"github.com/rustyeddy/riskengine/market"
	"github.com/rustyeddy/riskengine/pkg/errs"
	"github.com/rustyeddy/riskengine/risk"
	"github.com/rustyeddy/riskengine/sizing"
	"github.com/rustyeddy/riskengine/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input() Input {
	return Input{Risk: risk.Context{
		Settings:   *config.Default(),
		Signal:     market.Signal{Symbol: "BTCUSDT", Side: trade.SideBuy, Confidence: 0.7, EntryPrice: 100},
		Portfolio:  risk.PortfolioSnapshot{Equity: 10000, PeakEquity: 10000},
		USDBalance: 1000,
	}}
}

func TestBuild_DefaultSettings(t *testing.T) {
	t.Parallel()

	pl, err := Build(input())
	require.NoError(t, err)
	require.True(t, pl.Approved())

	require.NotNil(t, pl.Sizing)
	assert.InDelta(t, 20.0, pl.Sizing.MaxLossAmount, 1e-9)
	assert.InDelta(t, 400.0, pl.Sizing.PositionSize, 1e-9)
	assert.InDelta(t, 100.0, pl.Sizing.InitialAmount, 1e-9)

	require.NotNil(t, pl.Ladder)
	require.Len(t, pl.Ladder.Levels, 3)
	assert.InDelta(t, 98.0, pl.Ladder.Levels[0].Price, 1e-9)
	assert.InDelta(t, 94.0, pl.Ladder.Levels[2].Price, 1e-9)
	assert.InDelta(t, 400.0, pl.Ladder.TotalInvested, 1e-9)

	require.NotNil(t, pl.Exits)
	assert.InDelta(t, 95.0, pl.Exits.StopLossPrice, 1e-9)
	assert.InDelta(t, 103.0, pl.Exits.TakeProfitPrice, 1e-9)

	assert.InDelta(t, 20.0, pl.PlannedRiskUSD, 1e-9)
	assert.InDelta(t, 0.2, pl.PlannedRiskPct, 1e-9)
	assert.InDelta(t, 0.6, pl.PlannedRR, 1e-9)

	tr := pl.Trade("T1")
	assert.Equal(t, "T1", tr.ID)
	assert.Equal(t, trade.MarketSpot, tr.MarketType)
	assert.InDelta(t, 1.0, tr.Qty, 1e-9)
	require.NotNil(t, tr.StopLoss)
	assert.InDelta(t, 95.0, *tr.StopLoss, 1e-9)
	assert.Nil(t, tr.TrailingStop)
}

func TestBuild_Denied(t *testing.T) {
	t.Parallel()

	in := input()
	in.Risk.Portfolio.Alerts = []risk.Alert{{Kind: risk.AlertKill}}

	pl, err := Build(in)
	require.NoError(t, err)
	assert.False(t, pl.Approved())
	assert.True(t, pl.Risk.Has(risk.FlagKillSwitch))
	assert.Nil(t, pl.Sizing)
	assert.Nil(t, pl.Ladder)
	assert.Nil(t, pl.Exits)
	assert.Equal(t, trade.Trade{}, pl.Trade("T1"))
}

func TestBuild_VolatilityAppliedOnce(t *testing.T) {
	t.Parallel()

	for _, mode := range []sizing.Mode{sizing.ModeFixed, sizing.ModeVolatilityAdjusted} {
		in := input()
		in.Risk.Settings.SizingMode = mode
		in.Risk.Indicators = &market.Indicators{Symbol: "BTCUSDT", Volatility: market.VolatilityHigh}

		pl, err := Build(in)
		require.NoError(t, err)
		require.True(t, pl.Approved())
		require.NotNil(t, pl.Risk.AdjustedCapital)
		assert.InDelta(t, 700.0, *pl.Risk.AdjustedCapital, 1e-9, mode)
		assert.InDelta(t, 700.0, pl.Adjustment.AdjustedCapital, 1e-9, mode)
		assert.InDelta(t, 280.0, pl.Sizing.PositionSize, 1e-9, mode)
	}
}

func TestBuild_VolatilityAdjustedWithoutGuard(t *testing.T) {
	t.Parallel()

	in := input()
	in.Risk.Settings.SizingMode = sizing.ModeVolatilityAdjusted
	in.Risk.Settings.VolatilityGuardEnabled = false
	in.Risk.Indicators = &market.Indicators{Volatility: market.VolatilityExtreme}

	pl, err := Build(in)
	require.NoError(t, err)
	assert.Nil(t, pl.Risk.AdjustedCapital)
	assert.InDelta(t, 500.0, pl.Adjustment.AdjustedCapital, 1e-9)
	assert.Equal(t, trade.RiskHigh, pl.Adjustment.RiskLevel)
}

func TestBuild_RiskBasedLosingStreak(t *testing.T) {
	t.Parallel()

	in := input()
	in.Risk.Settings.SizingMode = sizing.ModeRiskBased
	in.Performance = &sizing.Performance{TotalTrades: 10, WinRate: 40, ConsecutiveLosses: 5}

	pl, err := Build(in)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, pl.Adjustment.AdjustedCapital, 1e-9)
	assert.InDelta(t, 200.0, pl.Sizing.PositionSize, 1e-9)
	assert.NotEmpty(t, pl.Adjustment.Reasons)
}

func TestBuild_NoDCA(t *testing.T) {
	t.Parallel()

	in := input()
	in.Risk.Settings.DCALevels = 0
	in.Risk.Settings.TrailingStopPct = 2

	pl, err := Build(in)
	require.NoError(t, err)
	assert.Nil(t, pl.Ladder)
	assert.InDelta(t, 400.0, pl.Sizing.InitialAmount, 1e-9)

	tr := pl.Trade("T2")
	assert.InDelta(t, 4.0, tr.Qty, 1e-9)
	require.NotNil(t, tr.TrailingStop)
	assert.InDelta(t, 2.0, tr.TrailingStop.CallbackPct, 1e-9)
	// armed at the price whose 2% callback lands on the entry
	assert.InDelta(t, 100.0, tr.TrailingStop.ActivationPrice*0.98, 1e-9)
}

func TestBuild_ShortFutures(t *testing.T) {
	t.Parallel()

	in := input()
	in.Risk.Signal.Side = trade.SideSell
	in.Risk.Settings.MarketType = trade.MarketFutures
	in.Risk.Settings.Leverage = 5

	pl, err := Build(in)
	require.NoError(t, err)
	assert.InDelta(t, 105.0, pl.Exits.StopLossPrice, 1e-9)
	assert.InDelta(t, 97.0, pl.Exits.TakeProfitPrice, 1e-9)
	assert.InDelta(t, 80.0, pl.Sizing.MarginUsed, 1e-9)
	assert.InDelta(t, 100.0, pl.PlannedRiskUSD, 1e-9)
	assert.Greater(t, pl.Ladder.Levels[2].Price, pl.Ladder.Levels[0].Price)
}

func TestBuild_InvalidSettings(t *testing.T) {
	t.Parallel()

	in := input()
	in.Risk.Settings.StopLossPct = 0

	_, err := Build(in)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)
}
