package sizing

import (
	"errors"
	"testing"

	"github.com/rustyeddy/riskengine/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize_RiskBasedPosition(t *testing.T) {
	t.Parallel()

	got, err := Size(Params{
		Balance:    10000,
		RiskPct:    2,
		LossPct:    5,
		Leverage:   1,
		EntryPrice: 100,
		InitialPct: 25,
	})
	require.NoError(t, err)

	assert.InDelta(t, 200.0, got.MaxLossAmount, 1e-9)
	assert.InDelta(t, 4000.0, got.PositionSize, 1e-9)
	assert.InDelta(t, 4000.0, got.MarginUsed, 1e-9)
	assert.InDelta(t, 1000.0, got.InitialAmount, 1e-9)
	assert.InDelta(t, 3000.0, got.RemainingAmount, 1e-9)
	assert.InDelta(t, 40.0, got.Quantity, 1e-9)
}

func TestSize_CappedAtNinetyFivePercent(t *testing.T) {
	t.Parallel()

	// 10% risk with a 1% stop would ask for 10x the balance.
	got, err := Size(Params{Balance: 1000, RiskPct: 10, LossPct: 1, Leverage: 5, EntryPrice: 50, InitialPct: 100})
	require.NoError(t, err)

	assert.InDelta(t, 950.0, got.PositionSize, 1e-9)
	assert.InDelta(t, 190.0, got.MarginUsed, 1e-9)
	assert.InDelta(t, 950.0, got.InitialAmount, 1e-9)
	assert.InDelta(t, 0.0, got.RemainingAmount, 1e-9)
}

func TestSize_InvalidParameters(t *testing.T) {
	t.Parallel()

	valid := Params{Balance: 1000, RiskPct: 1, LossPct: 2, Leverage: 1, EntryPrice: 10, InitialPct: 50}

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero loss pct", func(p *Params) { p.LossPct = 0 }},
		{"negative loss pct", func(p *Params) { p.LossPct = -1 }},
		{"zero leverage", func(p *Params) { p.Leverage = 0 }},
		{"zero entry", func(p *Params) { p.EntryPrice = 0 }},
		{"initial over 100", func(p *Params) { p.InitialPct = 101 }},
		{"negative balance", func(p *Params) { p.Balance = -5 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := valid
			tt.mutate(&p)
			_, err := Size(p)
			assert.True(t, errors.Is(err, errs.ErrInvalidParameter), "got %v", err)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		size    float64
		balance float64
		maxPct  float64
		want    bool
	}{
		{"within default cap", 900, 1000, 0, true},
		{"at default cap", 950, 1000, 95, true},
		{"over default cap", 951, 1000, 95, false},
		{"zero size", 0, 1000, 95, false},
		{"custom cap", 500, 1000, 50, true},
		{"over custom cap", 501, 1000, 50, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Validate(tt.size, tt.balance, tt.maxPct))
		})
	}
}
