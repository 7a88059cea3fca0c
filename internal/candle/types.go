// Package candle maintains durable candlestick subscriptions across several
// timeframes for one instrument, normalizes candles, and keeps a rolling
// in-memory window per (instrument, timeframe).
package candle

import "time"

// Timeframe is a Binance-style interval string ("1m", "5m", "1h", "4h", "1d", "1w").
type Timeframe string

// Candle is immutable once finalized.
type Candle struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Event is a single delivery from the market-data transport.
type Event struct {
	Instrument string
	Timeframe  Timeframe
	Candle     Candle
	IsFinal    bool
}

// PrimaryClosed is raised once the primary timeframe's candle finalizes.
type PrimaryClosed struct {
	Instrument string
	Timeframe  Timeframe
	ClosedAt   time.Time
}

// Backfiller fetches the last N finalized candles for a timeframe: the
// market-data transport's backfill half.
type Backfiller interface {
	Backfill(instrument string, tf Timeframe, limit int) ([]Candle, error)
}

// Streamer subscribes to live candle events for a timeframe and invokes fn
// for every delivery (final or not - filtering is the ingestor's job). It
// returns a stop function. errFn receives transport errors.
type Streamer interface {
	Stream(instrument string, tf Timeframe, fn func(Event), errFn func(error)) (stop func(), err error)
}
