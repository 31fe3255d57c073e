// Package gate runs signals through the engine for a live bot: it fetches
// indicators, serializes decisions per user and symbol, builds the plan,
// and writes the audit trail.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/riskengine/indicators"
	"github.com/rustyeddy/riskengine/internal/telemetry"
	"github.com/rustyeddy/riskengine/journal"
	"github.com/rustyeddy/riskengine/pkg/id"
	"github.com/rustyeddy/riskengine/plan"
	"github.com/rustyeddy/riskengine/position"
	"github.com/rustyeddy/riskengine/risk"
	"github.com/rustyeddy/riskengine/sizing"
	"github.com/rustyeddy/riskengine/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNotApproved = errors.New("plan not approved")

// Store is the slice of the journal the gate writes to.
type Store interface {
	RecordDecision(ctx context.Context, d journal.DecisionRecord) error
	SavePosition(ctx context.Context, p trade.Position) error
	GetPosition(ctx context.Context, id string) (trade.Position, error)
}

// Ledger reports realized PnL booked since a point in time.
type Ledger interface {
	RealizedSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
}

type Options struct {
	Logger   *zap.Logger
	Recorder *telemetry.Recorder

	// Indicators, when set, fills Request.Risk.Indicators for requests that
	// arrive without them.
	Indicators indicators.Source

	Store Store

	// Ledger, when set, replaces the portfolio's daily PnL with the realized
	// PnL booked since UTC midnight.
	Ledger Ledger

	IDs *id.Generator
	Now func() time.Time
}

type Request struct {
	UserID      string
	Timeframe   string
	Risk        risk.Context
	Performance *sizing.Performance
}

type Response struct {
	DecisionID string
	Plan       plan.Plan
}

type Service struct {
	log        *zap.Logger
	metrics    *telemetry.Recorder
	indicators indicators.Source
	store      Store
	ledger     Ledger
	ids        *id.Generator
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func New(o Options) *Service {
	s := &Service{
		log:        o.Logger,
		metrics:    o.Recorder,
		indicators: o.Indicators,
		store:      o.Store,
		ledger:     o.Ledger,
		ids:        o.IDs,
		now:        o.Now,
		locks:      make(map[string]*keyLock),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ids == nil {
		s.ids = id.NewGenerator(s.now)
	}
	return s
}

// acquire blocks until the caller holds key or ctx is done.
func (s *Service) acquire(ctx context.Context, key string) (func(), error) {
	s.mu.Lock()
	l := s.locks[key]
	if l == nil {
		l = &keyLock{ch: make(chan struct{}, 1)}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	done := func() {
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			done()
		}, nil
	case <-ctx.Done():
		done()
		return nil, ctx.Err()
	}
}

func decisionKey(user, symbol string) string { return user + "|" + symbol }

// Evaluate builds the plan for one signal. Calls for the same user and
// symbol run one at a time, so a decision always sees the journal state the
// previous one left behind.
func (s *Service) Evaluate(ctx context.Context, req Request) (Response, error) {
	sym := req.Risk.Signal.Symbol
	release, err := s.acquire(ctx, decisionKey(req.UserID, sym))
	if err != nil {
		return Response{}, fmt.Errorf("evaluate %s: %w", sym, err)
	}
	defer release()

	start := time.Now()
	log := s.log.With(zap.String("user", req.UserID), zap.String("symbol", sym))
	rc := req.Risk

	if rc.Indicators == nil && s.indicators != nil {
		ind, err := s.indicators.Indicators(ctx, sym, req.Timeframe)
		if err != nil {
			// No snapshot means no volatility guard; every other check still runs.
			s.metrics.Error("indicators")
			log.Warn("indicators unavailable", zap.String("timeframe", req.Timeframe), zap.Error(err))
		} else {
			rc.Indicators = &ind
		}
	}

	if s.ledger != nil {
		now := s.now().UTC()
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		pnl, err := s.ledger.RealizedSince(ctx, midnight)
		if err != nil {
			s.metrics.Error("journal")
			return Response{}, fmt.Errorf("evaluate %s: daily pnl: %w", sym, err)
		}
		rc.Portfolio.DailyPnL, _ = pnl.Float64()
	}

	p, err := plan.Build(plan.Input{Risk: rc, Performance: req.Performance})
	if err != nil {
		s.metrics.Error("plan")
		log.Error("plan failed", zap.Error(err))
		return Response{}, err
	}

	decisionID, err := s.ids.New()
	if err != nil {
		return Response{}, fmt.Errorf("evaluate %s: decision id: %w", sym, err)
	}
	if s.store != nil {
		if err := s.store.RecordDecision(ctx, journal.DecisionFromPlan(decisionID, s.now(), p)); err != nil {
			s.metrics.Error("journal")
			log.Error("record decision failed", zap.String("decision_id", decisionID), zap.Error(err))
			return Response{}, err
		}
	}

	s.metrics.Decision(p.Risk, time.Since(start))

	fields := []zap.Field{
		zap.String("decision_id", decisionID),
		zap.String("side", string(p.Side)),
		zap.String("level", string(p.Risk.Level)),
		zap.Strings("flags", flagNames(p.Risk.Flags)),
		zap.String("reason", p.Risk.Reason),
	}
	if p.Approved() {
		fields = append(fields,
			zap.Float64("position_size", p.Sizing.PositionSize),
			zap.Float64("planned_risk_usd", p.PlannedRiskUSD),
		)
		log.Info("signal approved", fields...)
	} else {
		log.Warn("signal denied", fields...)
	}

	return Response{DecisionID: decisionID, Plan: p}, nil
}

// Open records the position created by the filled initial entry of an
// approved plan.
func (s *Service) Open(ctx context.Context, p plan.Plan, entry trade.OrderRef) (trade.Position, error) {
	if !p.Approved() {
		return trade.Position{}, fmt.Errorf("open %s: %w: %s", p.Symbol, ErrNotApproved, p.Risk.Reason)
	}
	tradeID, err := s.ids.New()
	if err != nil {
		return trade.Position{}, fmt.Errorf("open %s: trade id: %w", p.Symbol, err)
	}
	posID, err := s.ids.New()
	if err != nil {
		return trade.Position{}, fmt.Errorf("open %s: position id: %w", p.Symbol, err)
	}

	pos, err := position.CreateFromTrade(p.Trade(tradeID), entry, posID)
	if err != nil {
		return trade.Position{}, err
	}
	if s.store != nil {
		if err := s.store.SavePosition(ctx, pos); err != nil {
			s.metrics.Error("journal")
			return trade.Position{}, err
		}
	}
	s.log.Info("position opened",
		zap.String("position_id", pos.ID),
		zap.String("symbol", pos.Symbol),
		zap.Float64("qty", pos.Qty),
		zap.Float64("avg_entry_price", pos.AvgEntryPrice),
	)
	return pos, nil
}

// ApplyFill loads a stored position, applies an order update and saves the
// result. Updates for the same position are serialized.
func (s *Service) ApplyFill(ctx context.Context, positionID string, order trade.OrderRef) (trade.Position, error) {
	if s.store == nil {
		return trade.Position{}, fmt.Errorf("apply fill %s: no store configured", positionID)
	}
	release, err := s.acquire(ctx, "position|"+positionID)
	if err != nil {
		return trade.Position{}, fmt.Errorf("apply fill %s: %w", positionID, err)
	}
	defer release()

	cur, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		return trade.Position{}, fmt.Errorf("apply fill %s: %w", positionID, err)
	}
	next, err := position.ApplyFill(cur, order)
	if err != nil {
		return cur, err
	}
	if err := s.store.SavePosition(ctx, next); err != nil {
		s.metrics.Error("journal")
		return cur, err
	}

	if next.Status != cur.Status {
		s.log.Info("position status changed",
			zap.String("position_id", next.ID),
			zap.String("from", string(cur.Status)),
			zap.String("to", string(next.Status)),
			zap.Float64("realized_pnl_usd", next.RealizedPnlUSD),
		)
	}
	return next, nil
}

func flagNames(fs []risk.Flag) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}
