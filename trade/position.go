package trade

import "time"

type PositionStatus string

const (
	PositionOpen    PositionStatus = "open"
	PositionClosing PositionStatus = "closing"
	PositionClosed  PositionStatus = "closed"
	PositionFailed  PositionStatus = "failed"
)

func (s PositionStatus) Terminal() bool {
	return s == PositionClosed || s == PositionFailed
}

func (s PositionStatus) Valid() bool {
	switch s {
	case PositionOpen, PositionClosing, PositionClosed, PositionFailed:
		return true
	}
	return false
}

// TrailingStop follows price by CallbackPct once ActivationPrice is crossed.
// Watermark is the best price seen since activation and StopPrice the level
// it currently protects. It is tracked apart from RiskState.StopLossPrice,
// which always stays on the loss side of the entry.
type TrailingStop struct {
	ActivationPrice float64 `json:"activation_price"`
	CallbackPct     float64 `json:"callback_pct"`
	Active          bool    `json:"active"`
	Watermark       float64 `json:"watermark,omitempty"`
	StopPrice       float64 `json:"stop_price,omitempty"`
}

// PartialTakeProfit is one rung of a scaled exit.
type PartialTakeProfit struct {
	Price  float64 `json:"price"`
	QtyPct float64 `json:"qty_pct"`
	Filled bool    `json:"filled"`
}

type RiskState struct {
	StopLossPrice      float64             `json:"stop_loss_price"`
	TakeProfitPrice    *float64            `json:"take_profit_price,omitempty"`
	TrailingStop       *TrailingStop       `json:"trailing_stop,omitempty"`
	PartialTakeProfits []PartialTakeProfit `json:"partial_take_profits,omitempty"`
}

// Position is the aggregate built from a trade's order fills.
type Position struct {
	ID         string         `json:"id"`
	TradeID    string         `json:"trade_id"`
	Exchange   string         `json:"exchange"`
	MarketType MarketType     `json:"market_type"`
	Symbol     string         `json:"symbol"`
	Side       Side           `json:"side"`
	Status     PositionStatus `json:"status"`

	EntryOrders []OrderRef `json:"entry_orders"`
	DCAOrders   []OrderRef `json:"dca_orders"`
	TPOrders    []OrderRef `json:"tp_orders"`
	SLOrders    []OrderRef `json:"sl_orders"`

	AvgEntryPrice    float64 `json:"avg_entry_price"`
	Qty              float64 `json:"qty"`
	Leverage         float64 `json:"leverage"`
	RealizedPnlUSD   float64 `json:"realized_pnl_usd"`
	UnrealizedPnlUSD float64 `json:"unrealized_pnl_usd"`

	RiskState RiskState `json:"risk_state"`

	FailureReason string    `json:"failure_reason,omitempty"`
	OpenedAt      time.Time `json:"opened_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ClosedAt      time.Time `json:"closed_at"`
}

// Orders returns entry, DCA, TP and SL orders in that order.
func (p Position) Orders() []OrderRef {
	out := make([]OrderRef, 0, len(p.EntryOrders)+len(p.DCAOrders)+len(p.TPOrders)+len(p.SLOrders))
	out = append(out, p.EntryOrders...)
	out = append(out, p.DCAOrders...)
	out = append(out, p.TPOrders...)
	out = append(out, p.SLOrders...)
	return out
}

// Clone returns a deep copy so callers can update it without touching p.
func (p Position) Clone() Position {
	c := p
	c.EntryOrders = append([]OrderRef(nil), p.EntryOrders...)
	c.DCAOrders = append([]OrderRef(nil), p.DCAOrders...)
	c.TPOrders = append([]OrderRef(nil), p.TPOrders...)
	c.SLOrders = append([]OrderRef(nil), p.SLOrders...)
	c.RiskState = p.RiskState.Clone()
	return c
}

func (r RiskState) Clone() RiskState {
	c := r
	if r.TakeProfitPrice != nil {
		v := *r.TakeProfitPrice
		c.TakeProfitPrice = &v
	}
	if r.TrailingStop != nil {
		ts := *r.TrailingStop
		c.TrailingStop = &ts
	}
	c.PartialTakeProfits = append([]PartialTakeProfit(nil), r.PartialTakeProfits...)
	return c
}

// StopOnLossSide reports whether stop sits on the loss side of entry for side.
// A zero stop means "no stop" and is accepted.
func StopOnLossSide(side Side, entry, stop float64) bool {
	if stop == 0 || entry <= 0 {
		return true
	}
	if side.IsLong() {
		return stop < entry
	}
	return stop > entry
}
