package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/solarflux/pulsetrader/internal/audit"
	"github.com/solarflux/pulsetrader/internal/broker"
	"github.com/solarflux/pulsetrader/internal/candle"
	"github.com/solarflux/pulsetrader/internal/db"
	"github.com/solarflux/pulsetrader/internal/exchange"
	"github.com/solarflux/pulsetrader/internal/indicators"
	"github.com/solarflux/pulsetrader/internal/metrics"
	"github.com/solarflux/pulsetrader/internal/notifications"
	"github.com/solarflux/pulsetrader/internal/oracle"
)

const maxConcurrentMonitorChecks = 16

// Source supplies the candle windows the monitor re-analyzes on each
// primary close; satisfied by candle.Ingestor (the same interface the
// composer reads from).
type Source interface {
	Window(tf candle.Timeframe) *candle.Window
}

// MonitorConfig wires a Monitor's dependencies.
type MonitorConfig struct {
	Primary candle.Timeframe
	Pool    *oracle.Pool
	Broker  broker.Broker
	DB      *db.DB
	Bus     *notifications.Bus
	Audit   *audit.Logger
}

// Monitor owns the open-position set exclusively: all
// reads and writes go through its exported methods, each of which takes the
// internal mutex, matching the writer-exclusive pattern internal/candle's
// Window and internal/broker's ExchangeBroker already use for the same
// ownership guarantee elsewhere in this pipeline. The Executor never
// touches positions directly, only via Register/Unregister.
type Monitor struct {
	cfg     MonitorConfig
	sources map[string]Source // instrument -> candle source
	log     zerolog.Logger

	mu        sync.Mutex
	positions map[string]*OpenPosition // tradeID -> position
}

// NewMonitor builds an empty Monitor. Sources maps each instrument the
// pipeline trades to its candle.Ingestor (or equivalent Source).
func NewMonitor(cfg MonitorConfig, sources map[string]Source, log zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:       cfg,
		sources:   sources,
		log:       log.With().Str("component", "monitor").Logger(),
		positions: make(map[string]*OpenPosition),
	}
}

// Register adds pos to the monitored set. No open position may be
// double-monitored.
func (m *Monitor) Register(pos *OpenPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.positions[pos.TradeID]; dup {
		return fmt.Errorf("monitor: position %s already registered", pos.TradeID)
	}
	m.positions[pos.TradeID] = pos
	return nil
}

// Unregister removes a closed position from the monitored set.
func (m *Monitor) Unregister(tradeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, tradeID)
}

// Count returns the number of currently monitored positions (tests and
// startup reconciliation logging).
func (m *Monitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions)
}

func (m *Monitor) snapshotForInstrument(instrument string) []*OpenPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*OpenPosition
	for _, p := range m.positions {
		if p.Instrument == instrument && !p.HoldingOnly {
			out = append(out, p)
		}
	}
	return out
}

// OnPrimaryClosed re-runs the oracle pool for instrument on every subsequent
// primary close and evaluates exit votes for each monitored position on
// that instrument. HoldingOnly positions (no recoverable
// origin metadata) are skipped; only broker-side SL/TP governs them.
func (m *Monitor) OnPrimaryClosed(ctx context.Context, instrument string) {
	positions := m.snapshotForInstrument(instrument)
	if len(positions) == 0 {
		return
	}

	src, ok := m.sources[instrument]
	if !ok || src == nil {
		m.log.Warn().Str("instrument", instrument).Msg("no candle source for monitored instrument")
		return
	}
	window := src.Window(m.cfg.Primary)
	if window == nil || window.Len() == 0 {
		return
	}
	candles := window.Snapshot()
	tail, _ := window.Tail()
	price := tail.Close

	bundle, err := indicators.Compute(candles)
	if err != nil {
		m.log.Warn().Err(err).Str("instrument", instrument).Msg("insufficient candles for monitor re-analysis")
		return
	}

	analysis := m.cfg.Pool.AnalyzePrimary(ctx, oracle.Input{
		Instrument: instrument, Timeframe: m.cfg.Primary, Candles: candles,
		Indicators: bundle, CurrentPrice: price,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentMonitorChecks)
	for _, pos := range positions {
		pos := pos
		g.Go(func() error {
			m.evaluate(gctx, pos, analysis, price)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Monitor) evaluate(ctx context.Context, pos *OpenPosition, analysis oracle.TimeframeAnalysis, price float64) {
	decision, votes := AggregateExit(pos, analysis, price)
	if decision == ExitHold {
		return
	}

	fraction := 1.0
	if decision == ExitPartial {
		fraction = PartialExitFraction
	}

	result, err := m.cfg.Broker.ClosePosition(ctx, pos.AgentID, pos.BrokerTicket, fraction)
	if err != nil {
		m.log.Error().Err(err).Str("trade_id", pos.TradeID).Msg("close position call failed")
		return
	}
	if result.Status == exchange.OrderStatusRejected {
		m.log.Warn().Str("trade_id", pos.TradeID).Str("error", result.Error).Msg("broker rejected close position")
		return
	}

	m.log.Info().Str("trade_id", pos.TradeID).Str("decision", string(decision)).
		Int("votes_fired", countFires(votes)).Float64("fraction", fraction).
		Float64("realized_pnl", result.RealizedPnL).Msg("position exit executed")

	metrics.RecordMonitorExit(string(decision))
	metrics.RecordTrade(result.RealizedPnL)

	if m.cfg.DB != nil {
		m.persistExit(ctx, pos, fraction, price, result.RealizedPnL)
	}
	if m.cfg.Bus != nil {
		m.cfg.Bus.Publish(notifications.TopicPositionClosed, map[string]any{
			"trade_id": pos.TradeID, "agent_id": pos.AgentID, "instrument": pos.Instrument,
			"decision": string(decision), "fraction": fraction, "realized_pnl": result.RealizedPnL,
		})
	}
	if m.cfg.Audit != nil {
		_ = m.cfg.Audit.LogSignalEvent(ctx, audit.EventTypePositionClosed, pos.TradeID, "position exit evaluated", true, string(decision),
			map[string]interface{}{"agent_id": pos.AgentID, "fraction": fraction, "votes_fired": countFires(votes)})
	}

	if fraction >= 1.0 {
		m.Unregister(pos.TradeID)
	} else {
		pos.Quantity -= pos.Quantity * fraction
	}
}

func (m *Monitor) persistExit(ctx context.Context, pos *OpenPosition, fraction, exitPrice, realizedPnL float64) {
	dbID, err := parseUUID(pos.TradeID)
	if err != nil {
		m.log.Warn().Err(err).Str("trade_id", pos.TradeID).Msg("position has no db-backed id, skipping persistence")
		return
	}
	reason := string(ExitPartial)
	if fraction >= 1.0 {
		reason = string(ExitFull)
		if err := m.cfg.DB.ClosePosition(ctx, dbID, exitPrice, reason, 0); err != nil {
			m.log.Error().Err(err).Str("trade_id", pos.TradeID).Msg("failed to persist position close")
		}
		return
	}
	closeQty := pos.Quantity * fraction
	if _, err := m.cfg.DB.PartialClosePosition(ctx, dbID, closeQty, exitPrice, reason, 0); err != nil {
		m.log.Error().Err(err).Str("trade_id", pos.TradeID).Msg("failed to persist partial position close")
	}
}

// Reconcile reconstructs the monitored set on startup from positions open in
// the trade store within the last 24h. Positions whose origin
// signal metadata cannot be recovered fall back to holding-only (broker-side
// SL/TP only, no early exit).
func (m *Monitor) Reconcile(ctx context.Context) error {
	if m.cfg.DB == nil {
		return nil
	}
	positions, err := m.cfg.DB.GetAllOpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("monitor: reconcile: %w", err)
	}
	cutoff := time.Now().Add(-24 * time.Hour)
	restored := 0
	for _, p := range positions {
		if p.EntryTime.Before(cutoff) {
			continue
		}
		agentID := ""
		if p.AgentID != nil {
			agentID = *p.AgentID
		}
		ticket := ""
		if p.BrokerTicket != nil {
			ticket = *p.BrokerTicket
		}
		pos := &OpenPosition{
			TradeID:      p.ID.String(),
			AgentID:      agentID,
			Instrument:   p.Symbol,
			Side:         dbSideToOrderSide(p.Side),
			EntryPrice:   p.EntryPrice,
			Quantity:     p.Quantity,
			BrokerTicket: ticket,
			OpenedAt:     p.EntryTime,
			HoldingOnly:  true, // origin signal not reconstructable from the row alone
		}
		if err := m.Register(pos); err != nil {
			m.log.Warn().Err(err).Str("trade_id", pos.TradeID).Msg("reconcile: skipping duplicate position")
			continue
		}
		restored++
	}
	m.log.Info().Int("restored", restored).Msg("reconciled open positions from trade store")
	return nil
}
