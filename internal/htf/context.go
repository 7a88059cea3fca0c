package htf

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/solarflux/pulsetrader/internal/candle"
)

// CandleSource supplies the HTF timeframe windows for one instrument. It is
// satisfied by candle.Ingestor (Window(tf).Snapshot()) and is the
// read-only boundary of the window ownership model: windows belong to the
// Ingestor, everything else only reads snapshots.
type CandleSource interface {
	Window(tf candle.Timeframe) *candle.Window
}

// Context maintains, per instrument, a bounded-staleness view of HTF
// support/resistance levels and the hysteretic trend label.
// It owns one trendState per instrument and is safe for concurrent Query
// calls.
type Context struct {
	cache   *RedisCache
	log     zerolog.Logger
	sources map[string]CandleSource

	mu     sync.Mutex
	trends map[string]*trendState
}

// NewContext builds a Context backed by an optional Redis cache (nil is
// valid: every query recomputes levels from the live sources).
func NewContext(cache *RedisCache, log zerolog.Logger) *Context {
	return &Context{
		cache:   cache,
		log:     log.With().Str("component", "htf").Logger(),
		sources: make(map[string]CandleSource),
		trends:  make(map[string]*trendState),
	}
}

// Register binds an instrument's candle source. Must be called before the
// first Query for that instrument.
func (c *Context) Register(instrument string, source CandleSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[instrument] = source
	if _, ok := c.trends[instrument]; !ok {
		c.trends[instrument] = newTrendState()
	}
}

// Query answers with the HTF level set and trend label for instrument at
// the given current price. Levels are served from cache when fresh;
// proximity is always recomputed live against price (cheap).
func (c *Context) Query(ctx context.Context, instrument string, price float64) Snapshot {
	levels, trendCandidate4h, have4h := c.levelsFor(ctx, instrument)

	c.mu.Lock()
	state, ok := c.trends[instrument]
	if !ok {
		state = newTrendState()
		c.trends[instrument] = state
	}

	var candidate TrendLabel
	if have4h {
		candidate = trendCandidate4h
	} else {
		candidate = candidateFromGeometry(levels, price)
	}
	state.advance(candidate, time.Now())
	trend := state.label
	confirmedAt := state.confirmedAt
	c.mu.Unlock()

	support, resistance, isNear, criticalType := Proximity(levels, price)

	return Snapshot{
		Levels:              levels,
		NearestSupport:      support,
		NearestResistance:   resistance,
		IsNearCriticalLevel: isNear,
		CriticalLevelType:   criticalType,
		Trend:               trend,
		TrendConfirmedAt:    confirmedAt,
		Stale:               levels == nil,
	}
}

// levelsFor returns the deduplicated level set for instrument, preferring a
// fresh cache entry, and the 4h trend candidate if 4h data was available.
func (c *Context) levelsFor(ctx context.Context, instrument string) (levels []Level, candidate4h TrendLabel, have4h bool) {
	if c.cache != nil {
		if cs, ok := c.cache.Get(ctx, instrument); ok {
			return cs.Levels, cs.Trend4h, cs.Have4h
		}
	}

	c.mu.Lock()
	source, ok := c.sources[instrument]
	c.mu.Unlock()
	if !ok {
		c.log.Warn().Str("instrument", instrument).Msg("no candle source registered, HTF degraded")
		return nil, Neutral, false
	}

	var all []Level
	for _, tf := range []Timeframe{TF4h, TF1d, TF1w} {
		w := source.Window(candle.Timeframe(tf))
		if w == nil || w.Len() == 0 {
			continue
		}
		candles := w.Snapshot()
		all = append(all, SwingLevels(tf, candles)...)
		all = append(all, FibPivots(tf, candles)...)
		if tf == TF4h {
			if cand, ok := candidateFrom4h(candles); ok {
				candidate4h, have4h = cand, true
			}
		}
	}

	deduped := Dedupe(all)

	if c.cache != nil {
		_ = c.cache.Set(ctx, instrument, cachedSnapshot{Levels: deduped, Trend4h: candidate4h, Have4h: have4h})
	}

	return deduped, candidate4h, have4h
}
