// Package position maintains the Position lifecycle as order fills arrive.
//
// Every function takes a Position by value and returns an updated copy; the
// input is never modified, so callers can keep the previous snapshot.
package position

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/riskengine/pkg/errs"
	"github.com/rustyeddy/riskengine/pnl"
	"github.com/rustyeddy/riskengine/trade"
)

var (
	ErrEntryNotFilled   = errors.New("entry order is not filled")
	ErrStopWrongSide    = errors.New("stop loss is not on the loss side of the average entry")
	ErrPositionClosed   = errors.New("position is closed")
	ErrUnknownRole      = errors.New("unknown order role")
	ErrFillWentBackward = errors.New("filled quantity decreased")
)

// CreateFromTrade opens a position from a filled entry order.
func CreateFromTrade(t trade.Trade, entry trade.OrderRef, id string) (trade.Position, error) {
	if entry.Status != trade.OrderFilled {
		return trade.Position{}, fmt.Errorf("create position %s: %w (status %s)", id, ErrEntryNotFilled, entry.Status)
	}
	if err := errs.First(
		errs.Positive("entry.filled_qty", entry.FilledQty),
		errs.Positive("entry.fill_price", entry.FillPrice()),
	); err != nil {
		return trade.Position{}, fmt.Errorf("create position %s: %w", id, err)
	}
	if !t.Side.Valid() {
		return trade.Position{}, errs.Invalid("trade.side", t.Side, "must be buy|sell")
	}

	lev := t.Leverage
	if lev <= 0 {
		lev = 1
	}
	mt := t.MarketType
	if mt == "" {
		mt = trade.MarketSpot
	}

	entry.Role = trade.RoleEntry
	p := trade.Position{
		ID:            id,
		TradeID:       t.ID,
		Exchange:      t.Exchange,
		MarketType:    mt,
		Symbol:        t.Symbol,
		Side:          t.Side,
		Status:        trade.PositionOpen,
		EntryOrders:   []trade.OrderRef{entry},
		AvgEntryPrice: entry.FillPrice(),
		Qty:           entry.FilledQty,
		Leverage:      lev,
		OpenedAt:      entry.UpdatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}

	if t.StopLoss != nil {
		p.RiskState.StopLossPrice = *t.StopLoss
	}
	if t.TakeProfit != nil {
		tp := *t.TakeProfit
		p.RiskState.TakeProfitPrice = &tp
	}
	if t.TrailingStop != nil {
		ts := *t.TrailingStop
		p.RiskState.TrailingStop = &ts
	}
	p.RiskState.PartialTakeProfits = append([]trade.PartialTakeProfit(nil), t.PartialTakeProfits...)

	if !trade.StopOnLossSide(p.Side, p.AvgEntryPrice, p.RiskState.StopLossPrice) {
		return trade.Position{}, fmt.Errorf("create position %s: %w (stop %.8g, entry %.8g)",
			id, ErrStopWrongSide, p.RiskState.StopLossPrice, p.AvgEntryPrice)
	}
	return p, nil
}

// UpdateAvgEntryAfterDCA re-weights the average entry with a DCA fill. It
// leaves the quantity alone; see UpdateQuantity. When the new average moves
// past the stop, the stop is clamped 1% beyond it on the loss side, the same
// clamp the DCA ladder applies.
func UpdateAvgEntryAfterDCA(p trade.Position, dca trade.OrderRef) trade.Position {
	if dca.FilledQty <= 0 {
		return p
	}
	out := p.Clone()
	total := p.Qty + dca.FilledQty
	out.AvgEntryPrice = (p.AvgEntryPrice*p.Qty + dca.FillPrice()*dca.FilledQty) / total
	clampStop(&out)
	return out
}

func clampStop(p *trade.Position) {
	if trade.StopOnLossSide(p.Side, p.AvgEntryPrice, p.RiskState.StopLossPrice) {
		return
	}
	if p.Side.IsLong() {
		p.RiskState.StopLossPrice = p.AvgEntryPrice * 0.99
	} else {
		p.RiskState.StopLossPrice = p.AvgEntryPrice * 1.01
	}
}

// UpdateQuantity adds entry fills and subtracts exit fills, never going
// below zero.
func UpdateQuantity(p trade.Position, order trade.OrderRef, isEntry bool) trade.Position {
	out := p.Clone()
	if isEntry {
		out.Qty += order.FilledQty
	} else {
		out.Qty = math.Max(0, out.Qty-order.FilledQty)
	}
	return out
}

// ShouldClose reports whether nothing is left to manage.
func ShouldClose(p trade.Position) bool {
	return p.Qty <= 0 || p.Status == trade.PositionClosed || p.Status == trade.PositionClosing
}

// ActiveOrders returns orders that can still fill (NEW, PENDING,
// PARTIALLY_FILLED).
func ActiveOrders(p trade.Position) []trade.OrderRef {
	return filter(p.Orders(), func(o trade.OrderRef) bool { return o.Status.Active() })
}

// FilledOrders returns fully FILLED orders.
func FilledOrders(p trade.Position) []trade.OrderRef {
	return filter(p.Orders(), func(o trade.OrderRef) bool { return o.Status == trade.OrderFilled })
}

func filter(orders []trade.OrderRef, keep func(trade.OrderRef) bool) []trade.OrderRef {
	var out []trade.OrderRef
	for _, o := range orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

// Transition moves the status along open -> closing -> closed. Any
// non-terminal status may move to failed. Closed and failed are absorbing,
// including a repeat of the same status.
func Transition(p trade.Position, to trade.PositionStatus) (trade.Position, error) {
	if !to.Valid() {
		return p, errs.Invalid("position_status", to, "unknown")
	}
	if p.Status.Terminal() {
		return p, fmt.Errorf("position %s %s -> %s: %w", p.ID, p.Status, to, errs.ErrInvalidTransition)
	}
	if p.Status == to {
		return p, nil
	}
	ok := false
	switch p.Status {
	case trade.PositionOpen:
		ok = to == trade.PositionClosing || to == trade.PositionClosed || to == trade.PositionFailed
	case trade.PositionClosing:
		ok = to == trade.PositionClosed || to == trade.PositionFailed
	}
	if !ok {
		return p, fmt.Errorf("position %s %s -> %s: %w", p.ID, p.Status, to, errs.ErrInvalidTransition)
	}
	out := p.Clone()
	out.Status = to
	return out, nil
}

// BeginClose marks an exit as in flight.
func BeginClose(p trade.Position) (trade.Position, error) {
	return Transition(p, trade.PositionClosing)
}

// MarkFailed moves the position to the failed terminal state.
func MarkFailed(p trade.Position, reason string) (trade.Position, error) {
	out, err := Transition(p, trade.PositionFailed)
	if err != nil {
		return p, err
	}
	out.FailureReason = reason
	return out, nil
}

// Revalue refreshes UnrealizedPnlUSD at lastPrice.
func Revalue(p trade.Position, lastPrice float64) trade.Position {
	out := p.Clone()
	out.UnrealizedPnlUSD = pnl.Unrealized(p, lastPrice)
	return out
}

// SetStopLoss replaces the stop. The stop must stay on the loss side of the
// average entry.
func SetStopLoss(p trade.Position, stop float64) (trade.Position, error) {
	if err := errs.NonNegative("stop_loss", stop); err != nil {
		return p, err
	}
	if !trade.StopOnLossSide(p.Side, p.AvgEntryPrice, stop) {
		return p, fmt.Errorf("position %s: %w (stop %.8g, entry %.8g)", p.ID, ErrStopWrongSide, stop, p.AvgEntryPrice)
	}
	out := p.Clone()
	out.RiskState.StopLossPrice = stop
	return out, nil
}
