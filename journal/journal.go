// Package journal persists positions and risk decisions.
//
// The engine packages never import journal; it sits at the persistence
// boundary and is the only place that knows about row shapes, including the
// legacy flat position documents (see DecodeLegacyPosition).
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/riskengine/plan"
	"github.com/rustyeddy/riskengine/risk"
	"github.com/rustyeddy/riskengine/trade"
)

var ErrNotFound = errors.New("not found")

// DecisionRecord is the audit row written for every evaluated signal.
type DecisionRecord struct {
	ID              string          `json:"id"`
	Time            time.Time       `json:"time"`
	Symbol          string          `json:"symbol"`
	Side            trade.Side      `json:"side"`
	Allowed         bool            `json:"allowed"`
	Reason          string          `json:"reason"`
	Level           trade.RiskLevel `json:"risk_level"`
	Flags           []risk.Flag     `json:"flags"`
	AdjustedCapital *float64        `json:"adjusted_capital,omitempty"`
	PositionSize    float64         `json:"position_size"`
	PlannedRiskUSD  float64         `json:"planned_risk_usd"`
}

// DecisionFromPlan flattens a plan into its audit row.
func DecisionFromPlan(id string, at time.Time, p plan.Plan) DecisionRecord {
	d := DecisionRecord{
		ID:             id,
		Time:           at,
		Symbol:         p.Symbol,
		Side:           p.Side,
		Allowed:        p.Risk.Allowed,
		Reason:         p.Risk.Reason,
		Level:          p.Risk.Level,
		Flags:          append([]risk.Flag(nil), p.Risk.Flags...),
		PlannedRiskUSD: p.PlannedRiskUSD,
	}
	if p.Risk.AdjustedCapital != nil {
		v := *p.Risk.AdjustedCapital
		d.AdjustedCapital = &v
	}
	if p.Sizing != nil {
		d.PositionSize = p.Sizing.PositionSize
	}
	return d
}

type Journal interface {
	SavePosition(ctx context.Context, p trade.Position) error
	GetPosition(ctx context.Context, id string) (trade.Position, error)
	ListPositions(ctx context.Context, status trade.PositionStatus) ([]trade.Position, error)
	RecordDecision(ctx context.Context, d DecisionRecord) error
	ListDecisions(ctx context.Context, symbol string, limit int) ([]DecisionRecord, error)
	Close() error
}
