package position

import (
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/riskengine/pkg/errs"
	"github.com/rustyeddy/riskengine/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func longTrade() trade.Trade {
	return trade.Trade{
		ID:         "T1",
		Exchange:   "binance",
		MarketType: trade.MarketSpot,
		Symbol:     "BTCUSDT",
		Side:       trade.SideBuy,
		EntryPrice: 100,
		Qty:        1,
		Leverage:   1,
		StopLoss:   ptr(90),
		TakeProfit: ptr(120),
	}
}

func filledEntry(qty, price float64) trade.OrderRef {
	return trade.OrderRef{
		ID:        "E1",
		Role:      trade.RoleEntry,
		Side:      trade.SideBuy,
		Status:    trade.OrderFilled,
		Price:     price,
		Qty:       qty,
		FilledQty: qty,
		AvgPrice:  price,
		UpdatedAt: t0,
	}
}

func openPosition(t *testing.T) trade.Position {
	t.Helper()
	p, err := CreateFromTrade(longTrade(), filledEntry(1, 100), "P1")
	require.NoError(t, err)
	return p
}

func TestCreateFromTrade(t *testing.T) {
	t.Parallel()

	p := openPosition(t)

	assert.Equal(t, "P1", p.ID)
	assert.Equal(t, "T1", p.TradeID)
	assert.Equal(t, trade.PositionOpen, p.Status)
	assert.Equal(t, 100.0, p.AvgEntryPrice)
	assert.Equal(t, 1.0, p.Qty)
	assert.Equal(t, 90.0, p.RiskState.StopLossPrice)
	require.NotNil(t, p.RiskState.TakeProfitPrice)
	assert.Equal(t, 120.0, *p.RiskState.TakeProfitPrice)
	assert.Equal(t, t0, p.OpenedAt)
	require.Len(t, p.EntryOrders, 1)
}

func TestCreateFromTrade_Errors(t *testing.T) {
	t.Parallel()

	pending := filledEntry(1, 100)
	pending.Status = trade.OrderPending
	_, err := CreateFromTrade(longTrade(), pending, "P1")
	assert.True(t, errors.Is(err, ErrEntryNotFilled))

	_, err = CreateFromTrade(longTrade(), filledEntry(0, 100), "P1")
	assert.True(t, errors.Is(err, errs.ErrInvalidParameter))

	bad := longTrade()
	bad.StopLoss = ptr(105)
	_, err = CreateFromTrade(bad, filledEntry(1, 100), "P1")
	assert.True(t, errors.Is(err, ErrStopWrongSide))

	short := longTrade()
	short.Side = trade.SideSell
	short.StopLoss = ptr(110)
	p, err := CreateFromTrade(short, filledEntry(1, 100), "P2")
	require.NoError(t, err)
	assert.Equal(t, trade.SideSell, p.Side)
}

func TestCreateFromTrade_DoesNotAliasTrade(t *testing.T) {
	t.Parallel()

	tr := longTrade()
	tr.TrailingStop = &trade.TrailingStop{CallbackPct: 2}
	p, err := CreateFromTrade(tr, filledEntry(1, 100), "P1")
	require.NoError(t, err)

	*tr.TakeProfit = 999
	tr.TrailingStop.CallbackPct = 50
	assert.Equal(t, 120.0, *p.RiskState.TakeProfitPrice)
	assert.Equal(t, 2.0, p.RiskState.TrailingStop.CallbackPct)
}

func TestUpdateAvgEntryAfterDCA(t *testing.T) {
	t.Parallel()

	p := openPosition(t)
	dca := trade.OrderRef{ID: "D1", Role: trade.RoleDCA, AvgPrice: 80, FilledQty: 1, Status: trade.OrderFilled}

	got := UpdateAvgEntryAfterDCA(p, dca)
	assert.InDelta(t, 90.0, got.AvgEntryPrice, 1e-9)
	assert.Equal(t, 1.0, got.Qty, "quantity is updated separately")
	assert.Equal(t, 100.0, p.AvgEntryPrice, "input untouched")

	noop := UpdateAvgEntryAfterDCA(p, trade.OrderRef{AvgPrice: 1, FilledQty: 0})
	assert.Equal(t, p.AvgEntryPrice, noop.AvgEntryPrice)
}

func TestUpdateQuantity(t *testing.T) {
	t.Parallel()

	p := openPosition(t)
	assert.Equal(t, 3.0, UpdateQuantity(p, trade.OrderRef{FilledQty: 2}, true).Qty)
	assert.Equal(t, 0.5, UpdateQuantity(p, trade.OrderRef{FilledQty: 0.5}, false).Qty)
	assert.Equal(t, 0.0, UpdateQuantity(p, trade.OrderRef{FilledQty: 5}, false).Qty)
}

func TestShouldClose(t *testing.T) {
	t.Parallel()

	p := openPosition(t)
	assert.False(t, ShouldClose(p))

	empty := p
	empty.Qty = 0
	assert.True(t, ShouldClose(empty))

	closing := p
	closing.Status = trade.PositionClosing
	assert.True(t, ShouldClose(closing))

	closed := p
	closed.Status = trade.PositionClosed
	assert.True(t, ShouldClose(closed))
}

func TestActiveAndFilledOrders(t *testing.T) {
	t.Parallel()

	p := openPosition(t)
	p.DCAOrders = []trade.OrderRef{
		{ID: "D1", Status: trade.OrderNew},
		{ID: "D2", Status: trade.OrderCanceled},
	}
	p.TPOrders = []trade.OrderRef{{ID: "TP1", Status: trade.OrderPartiallyFilled}}
	p.SLOrders = []trade.OrderRef{{ID: "SL1", Status: trade.OrderPending}}

	ids := func(os []trade.OrderRef) []string {
		var out []string
		for _, o := range os {
			out = append(out, o.ID)
		}
		return out
	}

	assert.Equal(t, []string{"D1", "TP1", "SL1"}, ids(ActiveOrders(p)))
	assert.Equal(t, []string{"E1"}, ids(FilledOrders(p)))
}

func TestTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    trade.PositionStatus
		to      trade.PositionStatus
		wantErr bool
	}{
		{"open to closing", trade.PositionOpen, trade.PositionClosing, false},
		{"open to closed", trade.PositionOpen, trade.PositionClosed, false},
		{"closing to closed", trade.PositionClosing, trade.PositionClosed, false},
		{"closing to failed", trade.PositionClosing, trade.PositionFailed, false},
		{"closing back to open", trade.PositionClosing, trade.PositionOpen, true},
		{"closed is terminal", trade.PositionClosed, trade.PositionOpen, true},
		{"failed is terminal", trade.PositionFailed, trade.PositionClosed, true},
		{"open stays open", trade.PositionOpen, trade.PositionOpen, false},
		{"closed again", trade.PositionClosed, trade.PositionClosed, true},
		{"failed again", trade.PositionFailed, trade.PositionFailed, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Transition(trade.Position{ID: "P", Status: tt.from}, tt.to)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
				assert.Equal(t, tt.from, got.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)
		})
	}
}

func TestMarkFailed(t *testing.T) {
	t.Parallel()

	p, err := MarkFailed(openPosition(t), "exchange rejected stop")
	require.NoError(t, err)
	assert.Equal(t, trade.PositionFailed, p.Status)
	assert.Equal(t, "exchange rejected stop", p.FailureReason)

	again, err := MarkFailed(p, "again")
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
	assert.Equal(t, "exchange rejected stop", again.FailureReason)
}

func TestRevalue(t *testing.T) {
	t.Parallel()

	p := Revalue(openPosition(t), 110)
	assert.InDelta(t, 10.0, p.UnrealizedPnlUSD, 1e-9)
}

func TestSetStopLoss(t *testing.T) {
	t.Parallel()

	p := openPosition(t)
	got, err := SetStopLoss(p, 95)
	require.NoError(t, err)
	assert.Equal(t, 95.0, got.RiskState.StopLossPrice)
	assert.Equal(t, 90.0, p.RiskState.StopLossPrice)

	_, err = SetStopLoss(p, 101)
	assert.True(t, errors.Is(err, ErrStopWrongSide))
}
