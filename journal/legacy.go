package journal

import (
	"fmt"
	"time"

	"github.com/rustyeddy/riskengine/trade"
)

// LegacyPosition is the flat position document written by older bots. The
// same facts appear under snake_case keys and camelCase mirrors; when both
// are present the camelCase value wins, since it was the one kept current.
type LegacyPosition struct {
	ID         string  `json:"id"`
	TradeID    string  `json:"trade_id"`
	Exchange   string  `json:"exchange"`
	MarketType string  `json:"market_type"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Status     string  `json:"status"`
	Leverage   float64 `json:"leverage"`

	AvgEntryPrice   *float64 `json:"avg_entry_price,omitempty"`
	PositionQty     *float64 `json:"position_qty,omitempty"`
	RealizedPnlUSD  *float64 `json:"realized_pnl_usd,omitempty"`
	StopLossPrice   *float64 `json:"stop_loss_price,omitempty"`
	TakeProfitPrice *float64 `json:"take_profit_price,omitempty"`

	AvgEntryPriceCamel   *float64 `json:"avgEntryPrice,omitempty"`
	PositionQtyCamel     *float64 `json:"positionQty,omitempty"`
	RealizedPnlUSDCamel  *float64 `json:"realizedPnlUsd,omitempty"`
	StopLossPriceCamel   *float64 `json:"stopLossPrice,omitempty"`
	TakeProfitPriceCamel *float64 `json:"takeProfitPrice,omitempty"`

	OpenedAt  time.Time  `json:"opened_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

func pick(camel, snake *float64) *float64 {
	if camel != nil {
		return camel
	}
	return snake
}

func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// DecodeLegacyPosition reads a flat legacy document into the canonical
// position. Order history is not part of the legacy shape and comes back
// empty.
func DecodeLegacyPosition(data []byte) (trade.Position, error) {
	var l LegacyPosition
	if err := json.Unmarshal(data, &l); err != nil {
		return trade.Position{}, fmt.Errorf("decode legacy position: %w", err)
	}
	if l.ID == "" {
		return trade.Position{}, fmt.Errorf("decode legacy position: missing id")
	}

	status := trade.PositionStatus(l.Status)
	if status == "" {
		status = trade.PositionOpen
	}
	if !status.Valid() {
		return trade.Position{}, fmt.Errorf("legacy position %s: unknown status %q", l.ID, l.Status)
	}

	p := trade.Position{
		ID:             l.ID,
		TradeID:        l.TradeID,
		Exchange:       l.Exchange,
		MarketType:     trade.MarketType(l.MarketType),
		Symbol:         l.Symbol,
		Side:           trade.Side(l.Side),
		Status:         status,
		AvgEntryPrice:  val(pick(l.AvgEntryPriceCamel, l.AvgEntryPrice)),
		Qty:            val(pick(l.PositionQtyCamel, l.PositionQty)),
		Leverage:       l.Leverage,
		RealizedPnlUSD: val(pick(l.RealizedPnlUSDCamel, l.RealizedPnlUSD)),
		RiskState: trade.RiskState{
			StopLossPrice: val(pick(l.StopLossPriceCamel, l.StopLossPrice)),
		},
		OpenedAt:  l.OpenedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if tp := pick(l.TakeProfitPriceCamel, l.TakeProfitPrice); tp != nil {
		v := *tp
		p.RiskState.TakeProfitPrice = &v
	}
	if l.ClosedAt != nil {
		p.ClosedAt = *l.ClosedAt
	}
	if p.Leverage == 0 {
		p.Leverage = 1
	}
	return p, nil
}

// ToLegacy writes p in the flat legacy shape, filling both key styles.
func ToLegacy(p trade.Position) LegacyPosition {
	f := func(v float64) *float64 { return &v }
	l := LegacyPosition{
		ID:         p.ID,
		TradeID:    p.TradeID,
		Exchange:   p.Exchange,
		MarketType: string(p.MarketType),
		Symbol:     p.Symbol,
		Side:       string(p.Side),
		Status:     string(p.Status),
		Leverage:   p.Leverage,

		AvgEntryPrice:  f(p.AvgEntryPrice),
		PositionQty:    f(p.Qty),
		RealizedPnlUSD: f(p.RealizedPnlUSD),
		StopLossPrice:  f(p.RiskState.StopLossPrice),

		AvgEntryPriceCamel:  f(p.AvgEntryPrice),
		PositionQtyCamel:    f(p.Qty),
		RealizedPnlUSDCamel: f(p.RealizedPnlUSD),
		StopLossPriceCamel:  f(p.RiskState.StopLossPrice),

		OpenedAt:  p.OpenedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if tp := p.RiskState.TakeProfitPrice; tp != nil {
		l.TakeProfitPrice = f(*tp)
		l.TakeProfitPriceCamel = f(*tp)
	}
	if !p.ClosedAt.IsZero() {
		c := p.ClosedAt
		l.ClosedAt = &c
	}
	return l
}
