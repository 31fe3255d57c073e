package journal

import (
	"database/sql"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rustyeddy/riskengine/trade"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// orderSet is the JSON shape of the orders column.
type orderSet struct {
	Entry []trade.OrderRef `json:"entry,omitempty"`
	DCA   []trade.OrderRef `json:"dca,omitempty"`
	TP    []trade.OrderRef `json:"take_profit,omitempty"`
	SL    []trade.OrderRef `json:"stop_loss,omitempty"`
}

func dec(v float64) string { return decimal.NewFromFloat(v).String() }

func parseDec(col, s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	f, _ := d.Float64()
	return f, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// positionArgs returns the insert arguments in column order.
func positionArgs(p trade.Position) ([]any, error) {
	orders, err := json.Marshal(orderSet{Entry: p.EntryOrders, DCA: p.DCAOrders, TP: p.TPOrders, SL: p.SLOrders})
	if err != nil {
		return nil, fmt.Errorf("marshal orders: %w", err)
	}
	rs, err := json.Marshal(p.RiskState)
	if err != nil {
		return nil, fmt.Errorf("marshal risk state: %w", err)
	}
	return []any{
		p.ID, p.TradeID, p.Exchange, string(p.MarketType), p.Symbol, string(p.Side), string(p.Status),
		dec(p.AvgEntryPrice), dec(p.Qty), dec(p.Leverage), dec(p.RealizedPnlUSD), dec(p.UnrealizedPnlUSD),
		string(orders), string(rs), p.FailureReason,
		p.OpenedAt.UTC(), p.UpdatedAt.UTC(), nullTime(p.ClosedAt),
	}, nil
}

const positionColumns = `id, trade_id, exchange, market_type, symbol, side, status,
	avg_entry_price, qty, leverage, realized_pnl_usd, unrealized_pnl_usd,
	orders, risk_state, failure_reason, opened_at, updated_at, closed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPosition(s scanner) (trade.Position, error) {
	var (
		p                               trade.Position
		mt, side, status                string
		avg, qty, lev, realized, unreal string
		orders, rs                      string
		closed                          sql.NullTime
	)
	if err := s.Scan(
		&p.ID, &p.TradeID, &p.Exchange, &mt, &p.Symbol, &side, &status,
		&avg, &qty, &lev, &realized, &unreal,
		&orders, &rs, &p.FailureReason, &p.OpenedAt, &p.UpdatedAt, &closed,
	); err != nil {
		return trade.Position{}, err
	}
	p.MarketType = trade.MarketType(mt)
	p.Side = trade.Side(side)
	p.Status = trade.PositionStatus(status)
	p.OpenedAt, p.UpdatedAt = p.OpenedAt.UTC(), p.UpdatedAt.UTC()
	if closed.Valid {
		p.ClosedAt = closed.Time.UTC()
	}

	var err error
	for _, c := range []struct {
		name string
		src  string
		dst  *float64
	}{
		{"avg_entry_price", avg, &p.AvgEntryPrice},
		{"qty", qty, &p.Qty},
		{"leverage", lev, &p.Leverage},
		{"realized_pnl_usd", realized, &p.RealizedPnlUSD},
		{"unrealized_pnl_usd", unreal, &p.UnrealizedPnlUSD},
	} {
		if *c.dst, err = parseDec(c.name, c.src); err != nil {
			return trade.Position{}, fmt.Errorf("position %s: %w", p.ID, err)
		}
	}

	var set orderSet
	if err := json.Unmarshal([]byte(orders), &set); err != nil {
		return trade.Position{}, fmt.Errorf("position %s orders: %w", p.ID, err)
	}
	p.EntryOrders, p.DCAOrders, p.TPOrders, p.SLOrders = set.Entry, set.DCA, set.TP, set.SL

	if err := json.Unmarshal([]byte(rs), &p.RiskState); err != nil {
		return trade.Position{}, fmt.Errorf("position %s risk state: %w", p.ID, err)
	}
	return p, nil
}

func decisionArgs(d DecisionRecord) ([]any, error) {
	flags, err := json.Marshal(d.Flags)
	if err != nil {
		return nil, fmt.Errorf("marshal flags: %w", err)
	}
	var adj any
	if d.AdjustedCapital != nil {
		adj = dec(*d.AdjustedCapital)
	}
	return []any{
		d.ID, d.Time.UTC(), d.Symbol, string(d.Side), d.Allowed, d.Reason, string(d.Level),
		string(flags), adj, dec(d.PositionSize), dec(d.PlannedRiskUSD),
	}, nil
}

const decisionColumns = `id, time, symbol, side, allowed, reason, risk_level,
	flags, adjusted_capital, position_size, planned_risk_usd`

func scanDecision(s scanner) (DecisionRecord, error) {
	var (
		d                        DecisionRecord
		side, level              string
		flags, size, plannedRisk string
		adj                      sql.NullString
	)
	if err := s.Scan(&d.ID, &d.Time, &d.Symbol, &side, &d.Allowed, &d.Reason, &level,
		&flags, &adj, &size, &plannedRisk); err != nil {
		return DecisionRecord{}, err
	}
	d.Time = d.Time.UTC()
	d.Side = trade.Side(side)
	d.Level = trade.RiskLevel(level)

	if err := json.Unmarshal([]byte(flags), &d.Flags); err != nil {
		return DecisionRecord{}, fmt.Errorf("decision %s flags: %w", d.ID, err)
	}
	var err error
	if d.PositionSize, err = parseDec("position_size", size); err != nil {
		return DecisionRecord{}, fmt.Errorf("decision %s: %w", d.ID, err)
	}
	if d.PlannedRiskUSD, err = parseDec("planned_risk_usd", plannedRisk); err != nil {
		return DecisionRecord{}, fmt.Errorf("decision %s: %w", d.ID, err)
	}
	if adj.Valid {
		v, err := parseDec("adjusted_capital", adj.String)
		if err != nil {
			return DecisionRecord{}, fmt.Errorf("decision %s: %w", d.ID, err)
		}
		d.AdjustedCapital = &v
	}
	return d, nil
}
