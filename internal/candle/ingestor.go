package candle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/solarflux/pulsetrader/internal/metrics"
	"github.com/solarflux/pulsetrader/internal/netutil"
)

// Config configures one Ingestor instance.
type Config struct {
	Instrument    string
	Primary       Timeframe
	Supporting    []Timeframe
	HTF           []Timeframe
	BackfillLimit map[Timeframe]int // per-timeframe override; default 100 for HTF, 80 intraday
}

// Ingestor owns the rolling windows for one instrument across the primary,
// supporting, and HTF timeframes, and raises PrimaryClosed events when the
// primary timeframe's candle finalizes.
type Ingestor struct {
	cfg        Config
	backfiller Backfiller
	streamer   Streamer
	log        zerolog.Logger

	windows map[Timeframe]*Window

	mu        sync.Mutex
	running   bool
	suspended bool
	stopFns   []func()

	primaryClosed chan PrimaryClosed
}

// NewIngestor builds an Ingestor with one Window per configured timeframe.
func NewIngestor(cfg Config, backfiller Backfiller, streamer Streamer, log zerolog.Logger) *Ingestor {
	windows := make(map[Timeframe]*Window)
	for _, tf := range cfg.allTimeframes() {
		windows[tf] = NewWindow(retentionFor(tf))
	}

	return &Ingestor{
		cfg:           cfg,
		backfiller:    backfiller,
		streamer:      streamer,
		log:           log.With().Str("component", "ingestor").Str("instrument", cfg.Instrument).Logger(),
		windows:       windows,
		primaryClosed: make(chan PrimaryClosed, 1),
	}
}

func (c Config) allTimeframes() []Timeframe {
	tfs := append([]Timeframe{c.Primary}, c.Supporting...)
	return append(tfs, c.HTF...)
}

func retentionFor(tf Timeframe) int {
	switch tf {
	case "4h", "1d", "1w":
		return 100
	default:
		return 100
	}
}

// Window returns the rolling window for a timeframe, or nil if unconfigured.
func (ing *Ingestor) Window(tf Timeframe) *Window {
	return ing.windows[tf]
}

// PrimaryClosed is the event channel consumers should select on.
func (ing *Ingestor) PrimaryClosed() <-chan PrimaryClosed {
	return ing.primaryClosed
}

// Start backfills every configured timeframe then subscribes to the live
// stream. Backfill failure for an HTF timeframe is logged and non-fatal
// (degrades HTF context); failure for the primary or a supporting timeframe
// is returned so the caller can decide whether to proceed.
func (ing *Ingestor) Start() error {
	ing.mu.Lock()
	if ing.running {
		ing.mu.Unlock()
		return nil
	}
	ing.running = true
	ing.mu.Unlock()

	for _, tf := range ing.cfg.allTimeframes() {
		if err := ing.backfillOnce(tf); err != nil {
			if isHTF(tf) {
				ing.log.Warn().Err(err).Str("timeframe", string(tf)).Msg("HTF backfill failed, degraded")
				continue
			}
			return fmt.Errorf("backfill %s: %w", tf, err)
		}
	}

	for _, tf := range ing.cfg.allTimeframes() {
		tf := tf
		stop, err := ing.streamer.Stream(ing.cfg.Instrument, tf, func(evt Event) {
			ing.onEvent(tf, evt)
		}, func(err error) {
			ing.onTransportError(tf, err)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", tf, err)
		}
		ing.mu.Lock()
		ing.stopFns = append(ing.stopFns, stop)
		ing.mu.Unlock()
	}

	return nil
}

// Stop is idempotent; it cancels every subscription.
func (ing *Ingestor) Stop() {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	if !ing.running {
		return
	}
	for _, stop := range ing.stopFns {
		stop()
	}
	ing.stopFns = nil
	ing.running = false
}

func (ing *Ingestor) backfillOnce(tf Timeframe) error {
	limit := 100
	if l, ok := ing.cfg.BackfillLimit[tf]; ok {
		limit = l
	} else if !isHTF(tf) {
		limit = 80
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var candles []Candle
	err := netutil.Retry(ctx, netutil.DefaultBackoffConfig(), 3, func(ctx context.Context) error {
		var err error
		candles, err = ing.backfiller.Backfill(ing.cfg.Instrument, tf, limit)
		return err
	})
	if err != nil {
		return err
	}

	ing.windows[tf].Seed(candles)
	return nil
}

// onEvent handles one delivered candle: ignored unless finalized, appended
// to the matching window, and if it is the primary timeframe and actually
// extended the window, raises PrimaryClosed (the window already holds
// the triggering candle before the event is raised).
func (ing *Ingestor) onEvent(tf Timeframe, evt Event) {
	ing.mu.Lock()
	suspended := ing.suspended
	ing.mu.Unlock()
	if suspended {
		return
	}

	if !evt.IsFinal {
		return
	}

	w, ok := ing.windows[tf]
	if !ok {
		return
	}

	changed := w.Append(evt.Candle)
	if changed {
		metrics.RecordCandleIngested(string(tf))
	}
	if !changed || tf != ing.cfg.Primary {
		return
	}

	ing.emitPrimaryClosed(evt.Candle.CloseTime)
}

// emitPrimaryClosed implements the at-most-one-pending coalescing rule of
// at-most-one-pending coalescing: a new event that arrives while one is already queued is
// coalesced (dropped), not stacked.
func (ing *Ingestor) emitPrimaryClosed(closedAt time.Time) {
	evt := PrimaryClosed{Instrument: ing.cfg.Instrument, Timeframe: ing.cfg.Primary, ClosedAt: closedAt}
	select {
	case ing.primaryClosed <- evt:
	default:
		ing.log.Debug().Msg("primary-closed coalesced: consumer still processing previous tick")
	}
}

// onTransportError suspends emission (without dropping the running state)
// and attempts reconnection with reconciliation.
func (ing *Ingestor) onTransportError(tf Timeframe, err error) {
	ing.log.Warn().Err(err).Str("timeframe", string(tf)).Msg("transport disconnected")

	ing.mu.Lock()
	ing.suspended = true
	ing.mu.Unlock()

	if rerr := ing.backfillOnce(tf); rerr != nil {
		ing.log.Error().Err(rerr).Str("timeframe", string(tf)).Msg("reconnect backfill failed")
		return
	}

	ing.mu.Lock()
	ing.suspended = false
	ing.mu.Unlock()
	ing.log.Info().Str("timeframe", string(tf)).Msg("transport reconciled, emission resumed")
}

func isHTF(tf Timeframe) bool {
	switch tf {
	case "4h", "1d", "1w":
		return true
	default:
		return false
	}
}
