package position

import (
	"fmt"
	"math"

	"github.com/rustyeddy/riskengine/pkg/errs"
	"github.com/rustyeddy/riskengine/pnl"
	"github.com/rustyeddy/riskengine/trade"
)

// ApplyFill folds an order update into the position. FilledQty, AvgPrice
// and Fee on the order are cumulative, so replaying the same event, or a
// later partial fill of a known order, only applies the new quantity.
//
// Entry and DCA fills re-average the entry and add quantity. Take-profit and
// stop-loss fills book realized PnL and reduce quantity. A partially filled
// exit moves the position to closing; zero quantity closes it.
func ApplyFill(p trade.Position, order trade.OrderRef) (trade.Position, error) {
	if p.Status.Terminal() {
		return p, fmt.Errorf("apply fill %s to position %s: %w", order.ID, p.ID, ErrPositionClosed)
	}
	if !order.Status.Valid() {
		return p, errs.Invalid("order.status", order.Status, "unknown")
	}
	if err := errs.NonNegative("order.filled_qty", order.FilledQty); err != nil {
		return p, err
	}

	out := p.Clone()
	list, err := ordersFor(&out, order.Role)
	if err != nil {
		return p, err
	}

	var prev trade.OrderRef
	idx := -1
	for i, o := range *list {
		if o.ID == order.ID {
			prev, idx = o, i
			break
		}
	}

	if idx >= 0 {
		if _, err := prev.Transition(order.Status); err != nil {
			return p, fmt.Errorf("apply fill to position %s: %w", p.ID, err)
		}
		if order.FilledQty < prev.FilledQty {
			return p, fmt.Errorf("order %s %.8g -> %.8g: %w", order.ID, prev.FilledQty, order.FilledQty, ErrFillWentBackward)
		}
		(*list)[idx] = order
	} else {
		*list = append(*list, order)
	}

	delta := order.FilledQty - prev.FilledQty
	if !order.UpdatedAt.IsZero() {
		out.UpdatedAt = order.UpdatedAt
	}
	if delta <= 0 {
		return out, nil
	}

	price := deltaPrice(prev, order, delta)
	fill := trade.OrderRef{FilledQty: delta, AvgPrice: price}

	if !order.Role.IsExit() {
		out = UpdateAvgEntryAfterDCA(out, fill)
		return UpdateQuantity(out, fill, true), nil
	}

	closeQty := math.Min(delta, out.Qty)
	lev := 1.0
	if out.MarketType == trade.MarketFutures {
		lev = out.Leverage
	}
	out.RealizedPnlUSD += pnl.Realized([]trade.Fill{{
		EntryPrice: out.AvgEntryPrice,
		ExitPrice:  price,
		Qty:        closeQty,
		Fee:        order.Fee - prev.Fee,
		Leverage:   lev,
	}}, out.Side)
	out = UpdateQuantity(out, trade.OrderRef{FilledQty: closeQty}, false)

	if out.Qty <= 0 {
		out.Status = trade.PositionClosed
		out.UnrealizedPnlUSD = 0
		out.ClosedAt = out.UpdatedAt
		return out, nil
	}
	if order.Status == trade.OrderPartiallyFilled && out.Status == trade.PositionOpen {
		out.Status = trade.PositionClosing
	}
	return out, nil
}

func ordersFor(p *trade.Position, role trade.OrderRole) (*[]trade.OrderRef, error) {
	switch role {
	case trade.RoleEntry:
		return &p.EntryOrders, nil
	case trade.RoleDCA:
		return &p.DCAOrders, nil
	case trade.RoleTakeProfit:
		return &p.TPOrders, nil
	case trade.RoleStopLoss:
		return &p.SLOrders, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
}

// deltaPrice recovers the price of the newly filled quantity from two
// cumulative average prices.
func deltaPrice(prev, cur trade.OrderRef, delta float64) float64 {
	if prev.FilledQty > 0 && prev.AvgPrice > 0 && cur.AvgPrice > 0 {
		v := (cur.AvgPrice*cur.FilledQty - prev.AvgPrice*prev.FilledQty) / delta
		if v > 0 {
			return v
		}
	}
	return cur.FillPrice()
}

// UpdateTrailingStop ratchets the trailing stop toward lastPrice. It arms
// once lastPrice crosses ActivationPrice (zero arms immediately) and never
// loosens. The second result reports whether the stop moved.
func UpdateTrailingStop(p trade.Position, lastPrice float64) (trade.Position, bool) {
	ts := p.RiskState.TrailingStop
	if ts == nil || ts.CallbackPct <= 0 || lastPrice <= 0 || p.Qty <= 0 || p.Status.Terminal() {
		return p, false
	}

	out := p.Clone()
	t := out.RiskState.TrailingStop
	long := p.Side.IsLong()

	if !t.Active {
		crossed := t.ActivationPrice <= 0 ||
			(long && lastPrice >= t.ActivationPrice) ||
			(!long && lastPrice <= t.ActivationPrice)
		if !crossed {
			return p, false
		}
		t.Active = true
		t.Watermark = lastPrice
	}

	if long {
		t.Watermark = math.Max(t.Watermark, lastPrice)
	} else {
		t.Watermark = math.Min(t.Watermark, lastPrice)
	}

	candidate := t.Watermark * (1 - p.Side.Sign()*t.CallbackPct/100)
	moved := false
	if t.StopPrice == 0 || (long && candidate > t.StopPrice) || (!long && candidate < t.StopPrice) {
		t.StopPrice = candidate
		moved = true
	}
	return out, moved
}

// EffectiveStop is the tighter of the fixed stop and an armed trailing stop.
// Zero means no stop.
func EffectiveStop(p trade.Position) float64 {
	stop := p.RiskState.StopLossPrice
	ts := p.RiskState.TrailingStop
	if ts == nil || !ts.Active || ts.StopPrice <= 0 {
		return stop
	}
	if stop == 0 {
		return ts.StopPrice
	}
	if p.Side.IsLong() {
		return math.Max(stop, ts.StopPrice)
	}
	return math.Min(stop, ts.StopPrice)
}

// StopHit reports whether lastPrice has reached the effective stop.
func StopHit(p trade.Position, lastPrice float64) bool {
	stop := EffectiveStop(p)
	if stop <= 0 || lastPrice <= 0 {
		return false
	}
	if p.Side.IsLong() {
		return lastPrice <= stop
	}
	return lastPrice >= stop
}
