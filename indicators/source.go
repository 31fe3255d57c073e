package indicators

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/riskengine/market"
	"golang.org/x/sync/singleflight"
)

// Source supplies the current indicator set for a symbol and timeframe.
type Source interface {
	Indicators(ctx context.Context, symbol, timeframe string) (market.Indicators, error)
}

// CandleSource supplies the most recent closed candles, oldest first.
type CandleSource interface {
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error)
}

// FromCandles computes indicators from a CandleSource on every call.
type FromCandles struct {
	Candles CandleSource
	Period  int
	Now     func() time.Time
}

func (s FromCandles) Indicators(ctx context.Context, symbol, timeframe string) (market.Indicators, error) {
	period := s.Period
	if period <= 0 {
		period = DefaultATRPeriod
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	cs, err := s.Candles.Candles(ctx, symbol, timeframe, period+1)
	if err != nil {
		return market.Indicators{}, fmt.Errorf("candles %s/%s: %w", symbol, timeframe, err)
	}
	return Snapshot(symbol, timeframe, cs, period, now())
}

// CachedSource serves indicator sets from a Cache and refreshes misses from
// the wrapped Source. Concurrent misses for the same key share one refresh.
// The refresh runs detached from any one caller's cancellation; each caller
// stops waiting when its own ctx is done.
type CachedSource struct {
	src   Source
	cache Cache
	group singleflight.Group
}

func NewCachedSource(src Source, cache Cache) *CachedSource {
	return &CachedSource{src: src, cache: cache}
}

func (s *CachedSource) Indicators(ctx context.Context, symbol, timeframe string) (market.Indicators, error) {
	k := Key{Symbol: symbol, Timeframe: timeframe}
	if v, ok := s.cache.Get(k); ok {
		return v, nil
	}

	refresh := context.WithoutCancel(ctx)
	ch := s.group.DoChan(k.String(), func() (any, error) {
		ind, err := s.src.Indicators(refresh, symbol, timeframe)
		if err != nil {
			return nil, err
		}
		s.cache.Set(k, ind)
		return ind, nil
	})

	select {
	case <-ctx.Done():
		return market.Indicators{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return market.Indicators{}, r.Err
		}
		return r.Val.(market.Indicators), nil
	}
}

// Invalidate drops the cached entry for symbol and timeframe.
func (s *CachedSource) Invalidate(symbol, timeframe string) {
	s.cache.Delete(Key{Symbol: symbol, Timeframe: timeframe})
}
