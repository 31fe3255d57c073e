package tpsl

import (
	"errors"
	"testing"

	"github.com/rustyeddy/riskengine/pkg/errs"
	"github.com/rustyeddy/riskengine/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_Percentages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		side   trade.Side
		wantSL float64
		wantTP float64
	}{
		{"long", trade.SideBuy, 95, 103},
		{"short", trade.SideSell, 105, 97},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Compute(100, tt.side, DefaultOptions())
			require.NoError(t, err)

			assert.InDelta(t, tt.wantSL, got.StopLossPrice, 1e-9)
			assert.InDelta(t, tt.wantTP, got.TakeProfitPrice, 1e-9)
			assert.InDelta(t, 5.0, got.RiskAmount, 1e-9)
			assert.InDelta(t, 3.0, got.RewardAmount, 1e-9)
			assert.InDelta(t, 0.6, got.ActualRRR, 1e-9)
			assert.True(t, Validate(100, got.StopLossPrice, got.TakeProfitPrice, tt.side))
		})
	}
}

func TestCompute_RiskRewardRatio(t *testing.T) {
	t.Parallel()

	for _, side := range []trade.Side{trade.SideBuy, trade.SideSell} {
		for _, rrr := range []float64{0.5, 1, 2, 3.7} {
			got, err := Compute(25000, side, Options{SLPct: 2, RRR: rrr, UseRRR: true})
			require.NoError(t, err)
			assert.InDelta(t, rrr, got.ActualRRR, 1e-9)
			assert.True(t, Validate(25000, got.StopLossPrice, got.TakeProfitPrice, side))
		}
	}

	got, err := Compute(100, trade.SideBuy, Options{SLPct: 5, RRR: 2, UseRRR: true})
	require.NoError(t, err)
	assert.InDelta(t, 95.0, got.StopLossPrice, 1e-9)
	assert.InDelta(t, 110.0, got.TakeProfitPrice, 1e-9)
	assert.InDelta(t, 10.0, got.TPPct, 1e-9)
}

func TestCompute_ZeroStopGivesZeroRatio(t *testing.T) {
	t.Parallel()

	got, err := Compute(100, trade.SideBuy, Options{SLPct: 0, TPPct: 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.ActualRRR)
}

func TestCompute_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Compute(0, trade.SideBuy, DefaultOptions())
	assert.True(t, errors.Is(err, errs.ErrInvalidParameter))

	_, err = Compute(100, trade.Side("hold"), DefaultOptions())
	assert.True(t, errors.Is(err, errs.ErrInvalidParameter))

	_, err = Compute(100, trade.SideBuy, Options{SLPct: -1})
	assert.True(t, errors.Is(err, errs.ErrInvalidParameter))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.True(t, Validate(100, 90, 110, trade.SideBuy))
	assert.False(t, Validate(100, 110, 90, trade.SideBuy))
	assert.True(t, Validate(100, 110, 90, trade.SideSell))
	assert.False(t, Validate(100, 100, 90, trade.SideSell))
}

func TestFromPrices(t *testing.T) {
	t.Parallel()

	got, ok := FromPrices(100, 95, 110, trade.SideBuy)
	require.True(t, ok)
	assert.InDelta(t, 5.0, got.SLPct, 1e-9)
	assert.InDelta(t, 10.0, got.TPPct, 1e-9)
	assert.InDelta(t, 2.0, got.ActualRRR, 1e-9)

	_, ok = FromPrices(100, 0, 110, trade.SideBuy)
	assert.False(t, ok)
	_, ok = FromPrices(100, 95, 0, trade.SideBuy)
	assert.False(t, ok)
}

func TestFromPricesInvertsCompute(t *testing.T) {
	t.Parallel()

	l, err := Compute(2000, trade.SideSell, Options{TPPct: 4, SLPct: 1.5})
	require.NoError(t, err)
	back, ok := FromPrices(2000, l.StopLossPrice, l.TakeProfitPrice, trade.SideSell)
	require.True(t, ok)
	assert.InDelta(t, 4.0, back.TPPct, 1e-9)
	assert.InDelta(t, 1.5, back.SLPct, 1e-9)
	assert.InDelta(t, l.ActualRRR, back.ActualRRR, 1e-9)
}
