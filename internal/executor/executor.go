package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/solarflux/pulsetrader/internal/alerts"
	"github.com/solarflux/pulsetrader/internal/audit"
	"github.com/solarflux/pulsetrader/internal/broadcast"
	"github.com/solarflux/pulsetrader/internal/broker"
	"github.com/solarflux/pulsetrader/internal/db"
	"github.com/solarflux/pulsetrader/internal/exchange"
	"github.com/solarflux/pulsetrader/internal/metrics"
	"github.com/solarflux/pulsetrader/internal/notifications"
	"github.com/solarflux/pulsetrader/internal/oracle"
	"github.com/solarflux/pulsetrader/internal/queue"
)

// defaultWorkers bounds how many validated-signal deliveries the Executor
// places concurrently ("a bounded worker pool").
const defaultWorkers = 8

// defaultPollInterval is how often Run checks the queue when it is empty.
const defaultPollInterval = 250 * time.Millisecond

// Config wires an Executor's dependencies.
type Config struct {
	Queue   *queue.Queue
	Broker  broker.Broker
	Monitor *Monitor
	DB      *db.DB
	Bus     *notifications.Bus
	Audit   *audit.Logger

	Workers      int
	PollInterval time.Duration
}

// Executor drains broadcast.ValidatedSignal entries from the validated-signal
// queue and turns each into a market order, then hands the resulting
// position to the Monitor.
type Executor struct {
	cfg Config
	log zerolog.Logger
}

// New builds an Executor from cfg, filling in defaults for Workers and
// PollInterval when unset.
func New(cfg Config, log zerolog.Logger) *Executor {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Executor{cfg: cfg, log: log.With().Str("component", "executor").Logger()}
}

// Run drains the queue until ctx is cancelled. Each delivery is processed on
// its own goroutine, bounded by cfg.Workers via errgroup.SetLimit; a worker
// blocks waiting for a free slot rather than the pool growing unbounded
// under a burst of broadcasts.
func (e *Executor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case <-ticker.C:
			for {
				item, ok := e.cfg.Queue.Pop(gctx)
				if !ok {
					break
				}
				item := item
				g.Go(func() error {
					e.process(gctx, item)
					return nil
				})
			}
		}
	}
}

func (e *Executor) process(ctx context.Context, item queue.Item) {
	vs, ok := item.Payload.(broadcast.ValidatedSignal)
	if !ok || vs.Signal == nil {
		e.log.Error().Str("signal_id", item.Key.SignalID).Msg("queue item payload is not a validated signal")
		return
	}
	log := e.log.With().Str("signal_id", vs.Signal.ID).Str("agent_id", vs.AgentID).Logger()

	if e.cfg.DB != nil {
		if existing, found, err := e.cfg.DB.GetPositionBySignalAgent(ctx, vs.Signal.ID, vs.AgentID); err != nil {
			log.Error().Err(err).Msg("idempotency lookup failed, processing anyway")
		} else if found {
			log.Info().Str("position_id", existing.ID.String()).Msg("validated signal already executed, skipping duplicate delivery")
			return
		}
	}

	if vs.Signal.Entry <= 0 {
		log.Error().Msg("signal has non-positive entry price, dropping")
		return
	}
	quantity := vs.PositionSize / vs.Signal.Entry
	if quantity <= 0 {
		log.Warn().Msg("computed non-positive quantity, dropping")
		return
	}
	side := orderSideForDirection(vs.Signal.Direction)

	stop := &vs.Signal.Stop
	target := &vs.Signal.Target
	if vs.StopOverride != nil {
		stop = vs.StopOverride
	}
	if vs.TargetOverride != nil {
		target = vs.TargetOverride
	}

	start := time.Now()
	result, err := e.cfg.Broker.PlaceMarketOrder(ctx, vs.AgentID, vs.Signal.Instrument, side, quantity, stop, target)
	metrics.RecordOrderExecution(float64(time.Since(start).Milliseconds()))
	if err != nil {
		log.Error().Err(err).Msg("broker order placement failed")
		e.recordRejection(ctx, vs, err.Error())
		return
	}
	if result.Status == exchange.OrderStatusRejected {
		log.Warn().Str("reason", result.Error).Msg("broker rejected order, not retrying")
		e.recordRejection(ctx, vs, result.Error)
		return
	}

	tradeID := uuid.New()
	entryVerdicts := vs.Signal.OriginOracles
	targetR := vs.Signal.Target - vs.Signal.Entry
	if targetR < 0 {
		targetR = -targetR
	}

	pos := &OpenPosition{
		TradeID:       tradeID.String(),
		AgentID:       vs.AgentID,
		Instrument:    vs.Signal.Instrument,
		Side:          side,
		EntryPrice:    result.FillPrice,
		Quantity:      quantity,
		BrokerTicket:  result.BrokerTicket,
		OpenedAt:      time.Now(),
		OriginSignal:  vs.Signal,
		EntryVerdicts: entryVerdicts,
		targetR:       targetR,
	}

	if e.cfg.DB != nil {
		e.persistOpen(ctx, tradeID, pos, vs)
	}
	if err := e.cfg.Monitor.Register(pos); err != nil {
		log.Error().Err(err).Msg("failed to register position with monitor")
	}

	if e.cfg.Bus != nil {
		e.cfg.Bus.Publish(notifications.TopicPositionOpened, map[string]any{
			"trade_id": pos.TradeID, "agent_id": vs.AgentID, "instrument": pos.Instrument,
			"side": string(side), "quantity": quantity, "entry_price": result.FillPrice,
		})
	}
	if e.cfg.Audit != nil {
		_ = e.cfg.Audit.LogSignalEvent(ctx, audit.EventTypePositionOpened, pos.TradeID, "validated signal executed", true, "",
			map[string]interface{}{"agent_id": vs.AgentID, "signal_id": vs.Signal.ID, "quantity": quantity})
	}
	log.Info().Str("trade_id", pos.TradeID).Float64("entry_price", result.FillPrice).Msg("position opened")
}

func (e *Executor) persistOpen(ctx context.Context, tradeID uuid.UUID, pos *OpenPosition, vs broadcast.ValidatedSignal) {
	agentID := vs.AgentID
	ticket := pos.BrokerTicket
	dbPos := &db.Position{
		ID:           tradeID,
		AgentID:      &agentID,
		BrokerTicket: &ticket,
		Symbol:       pos.Instrument,
		Exchange:     "binance",
		Side:         positionSideForDirection(vs.Signal.Direction),
		EntryPrice:   pos.EntryPrice,
		Quantity:     pos.Quantity,
		EntryTime:    pos.OpenedAt,
		StopLoss:     vs.StopOverride,
		TakeProfit:   vs.TargetOverride,
		Metadata: map[string]interface{}{
			"signal_id": vs.Signal.ID,
			"risk_band": string(vs.RiskBand),
		},
	}
	if dbPos.StopLoss == nil {
		dbPos.StopLoss = &vs.Signal.Stop
	}
	if dbPos.TakeProfit == nil {
		dbPos.TakeProfit = &vs.Signal.Target
	}
	if err := e.cfg.DB.CreatePosition(ctx, dbPos); err != nil {
		e.log.Error().Err(err).Str("trade_id", pos.TradeID).Msg("failed to persist opened position")
	}
}

func (e *Executor) recordRejection(ctx context.Context, vs broadcast.ValidatedSignal, reason string) {
	// Broker rejections are the one per-trade failure operators see as an
	// alert rather than just an audit row.
	side := string(orderSideForDirection(vs.Signal.Direction))
	alerts.AlertOrderFailed(ctx, vs.Signal.Instrument, side, vs.PositionSize, fmt.Errorf("%s", reason))

	if e.cfg.Bus != nil {
		e.cfg.Bus.Publish(notifications.TopicAgentValidated, map[string]any{
			"signal_id": vs.Signal.ID, "agent_id": vs.AgentID, "rejected": true, "reason": reason,
		})
	}
	if e.cfg.Audit != nil {
		_ = e.cfg.Audit.LogSignalEvent(ctx, audit.EventTypeSignalRejected, vs.Signal.ID, "order placement failed", false, reason,
			map[string]interface{}{"agent_id": vs.AgentID})
	}
}

// orderSideForDirection projects a composed signal's direction onto the
// broker's order-side space; HOLD signals never reach the executor (the
// composer and broadcaster both drop them upstream) so it defaults to buy.
func orderSideForDirection(dir oracle.Recommendation) exchange.OrderSide {
	if dir == oracle.Sell {
		return exchange.OrderSideSell
	}
	return exchange.OrderSideBuy
}

func positionSideForDirection(dir oracle.Recommendation) db.PositionSide {
	if dir == oracle.Sell {
		return db.PositionSideShort
	}
	return db.PositionSideLong
}
