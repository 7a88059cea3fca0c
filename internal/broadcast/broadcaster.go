// Package broadcast implements the Broadcast & Validator component: it
// snapshots the agent population, applies cheap eligibility checks, then
// fans out per-agent validation in parallel and enqueues survivors.
package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/solarflux/pulsetrader/internal/audit"
	"github.com/solarflux/pulsetrader/internal/broker"
	"github.com/solarflux/pulsetrader/internal/catalog"
	"github.com/solarflux/pulsetrader/internal/composer"
	"github.com/solarflux/pulsetrader/internal/metrics"
	"github.com/solarflux/pulsetrader/internal/notifications"
	"github.com/solarflux/pulsetrader/internal/oracle"
	"github.com/solarflux/pulsetrader/internal/queue"
	"github.com/solarflux/pulsetrader/internal/risk"
)

// lightModeRiskBand/lightModeSizePercent are the fixed outcome agents that
// do not opt into expensive validation always get ("light
// mode always returns MODERATE at 70% size, no oracle call made").
const (
	lightModeSizePercent = 0.70
	recentPerformanceWindowDays = 30
	maxConcurrentValidations    = 16
)

var riskBandSizePercent = map[oracle.RiskBand]float64{
	oracle.Safe:     1.00,
	oracle.Moderate: 0.70,
	oracle.Risky:    0.40,
}

// MarketConditions is the lightweight current-market bundle full-mode
// validation includes in its request.
type MarketConditions struct {
	LiquidityBucket string
	Spread          float64
	Volatility      float64
}

// InstrumentCategoryLookup resolves an instrument to its catalog category,
// used by the cheap category-admissibility eligibility check.
type InstrumentCategoryLookup func(instrument string) string

// Config wires a Broadcaster's dependencies.
type Config struct {
	Catalog           catalog.Catalog
	Admissibility     catalog.SymbolAdmissibilityLookup
	Broker            broker.Broker
	Validation        oracle.ValidationOracle
	Performance       *risk.Calculator
	Queue             *queue.Queue
	Bus               *notifications.Bus
	Audit             *audit.Logger
	InstrumentCategory InstrumentCategoryLookup
	MarketConditions  func(instrument string) MarketConditions
}

// Broadcaster runs one signal through the full agent population.
type Broadcaster struct {
	cfg Config
	log zerolog.Logger
}

// New builds a Broadcaster.
func New(cfg Config, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{cfg: cfg, log: log.With().Str("component", "broadcast").Logger()}
}

// Broadcast runs sig through every catalog agent: cheap eligibility checks
// first, then parallel per-agent validation (light or full mode), enqueuing
// every agent that validates as executable.
func (b *Broadcaster) Broadcast(ctx context.Context, sig *composer.Signal) error {
	agents, err := b.cfg.Catalog.List(ctx)
	if err != nil {
		return fmt.Errorf("broadcast: list agents: %w", err)
	}

	category := ""
	if b.cfg.InstrumentCategory != nil {
		category = b.cfg.InstrumentCategory(sig.Instrument)
	}

	eligible := make([]catalog.Agent, 0, len(agents))
	for _, a := range agents {
		reason, ok := checkEligibility(ctx, a, sig, category, b.cfg.Catalog, b.cfg.Admissibility, b.cfg.Broker)
		if !ok {
			metrics.RecordAgentExclusion(string(reason))
			b.recordExclusion(ctx, sig, a.ID, reason)
			continue
		}
		eligible = append(eligible, a)
	}
	metrics.UpdateEligibleAgents(len(eligible))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentValidations)
	for _, a := range eligible {
		a := a
		g.Go(func() error {
			b.validateAndEnqueue(gctx, sig, a)
			return nil
		})
	}
	_ = g.Wait()

	if b.cfg.Bus != nil {
		b.cfg.Bus.Publish(notifications.TopicBroadcastComplete, map[string]any{
			"signal_id":  sig.ID,
			"instrument": sig.Instrument,
			"candidates": len(eligible),
		})
	}
	return nil
}

// validateAndEnqueue validates sig for one agent and, if executable,
// enqueues a ValidatedSignal. Any error validating excludes the agent
// rather than failing the whole broadcast.
func (b *Broadcaster) validateAndEnqueue(ctx context.Context, sig *composer.Signal, agent catalog.Agent) {
	mode := "full"
	if !agent.EnableExpensiveValidation || b.cfg.Validation == nil {
		mode = "light"
	}

	start := time.Now()
	decision, err := b.validate(ctx, sig, agent)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordValidationDecision(mode, "error", elapsed)
		b.recordExclusion(ctx, sig, agent.ID, ExclusionCheckFailed)
		return
	}
	if !decision.ShouldExecute {
		metrics.RecordValidationDecision(mode, "rejected", elapsed)
		b.recordValidation(ctx, sig, agent.ID, decision, false)
		return
	}
	metrics.RecordValidationDecision(mode, "accepted", elapsed)

	sizePercent := riskBandSizePercent[decision.RiskBand]
	if sizePercent == 0 {
		sizePercent = riskBandSizePercent[oracle.Moderate]
	}

	// The risk band governs sizing: a fixed fraction of the agent's
	// available balance, never more than the balance itself. The composed
	// signal's size multiplier rides along for the executor's notional cap.
	bal, err := b.cfg.Broker.GetBalance(ctx, agent.ID)
	if err != nil {
		b.recordExclusion(ctx, sig, agent.ID, ExclusionCheckFailed)
		return
	}
	positionSize := bal.Available * sizePercent
	if positionSize > bal.Available {
		positionSize = bal.Available
	}

	vs := ValidatedSignal{
		Signal:         sig,
		AgentID:        agent.ID,
		SizePercent:    sizePercent,
		PositionSize:   positionSize,
		RiskBand:       decision.RiskBand,
		StopOverride:   decision.StopOverride,
		TargetOverride: decision.TargetOverride,
		ValidatedAt:    time.Now(),
	}

	priority := int(decision.Confidence * 100)
	item := queue.Item{
		Key:      queue.Key{SignalID: sig.ID, AgentID: agent.ID},
		Priority: priority,
		Payload:  vs,
	}
	if b.cfg.Queue != nil {
		if err := b.cfg.Queue.Push(ctx, item); err != nil {
			b.log.Error().Err(err).Str("signal_id", sig.ID).Str("agent_id", agent.ID).Msg("failed to enqueue validated signal")
			return
		}
	}

	b.recordValidation(ctx, sig, agent.ID, decision, true)
	if b.cfg.Bus != nil {
		b.cfg.Bus.Publish(notifications.TopicAgentValidated, map[string]any{
			"signal_id": sig.ID, "agent_id": agent.ID, "risk_band": string(decision.RiskBand),
		})
	}
}

// validate runs light-mode (fixed MODERATE/70%) or full-mode (the opaque
// ValidationOracle) validation, per agent.EnableExpensiveValidation.
func (b *Broadcaster) validate(ctx context.Context, sig *composer.Signal, agent catalog.Agent) (oracle.ValidationDecision, error) {
	if !agent.EnableExpensiveValidation || b.cfg.Validation == nil {
		return oracle.ValidationDecision{
			ShouldExecute: true,
			RiskBand:      oracle.Moderate,
			Reasoning:     "light-mode validation: fixed MODERATE band",
			Confidence:    sig.Confidence,
		}, nil
	}

	req, err := b.buildValidationRequest(ctx, sig, agent)
	if err != nil {
		return oracle.ValidationDecision{}, err
	}
	return b.cfg.Validation.Validate(ctx, req)
}

func (b *Broadcaster) buildValidationRequest(ctx context.Context, sig *composer.Signal, agent catalog.Agent) (oracle.ValidationRequest, error) {
	bal, err := b.cfg.Broker.GetBalance(ctx, agent.ID)
	if err != nil {
		return oracle.ValidationRequest{}, fmt.Errorf("validation request: balance: %w", err)
	}
	openCount, err := b.cfg.Catalog.OpenPositionCount(ctx, agent.ID)
	if err != nil {
		return oracle.ValidationRequest{}, fmt.Errorf("validation request: open positions: %w", err)
	}

	var perf risk.PerformanceSnapshot
	if b.cfg.Performance != nil {
		perf, err = b.cfg.Performance.PerformanceSnapshot(ctx, agent.ID, recentPerformanceWindowDays)
		if err != nil {
			return oracle.ValidationRequest{}, fmt.Errorf("validation request: performance: %w", err)
		}
	}

	var mc MarketConditions
	if b.cfg.MarketConditions != nil {
		mc = b.cfg.MarketConditions(sig.Instrument)
	}

	return oracle.ValidationRequest{
		AgentID:           agent.ID,
		AgentRiskLevel:    agent.RiskLevel,
		Budget:            agent.Budget,
		AvailableBalance:  bal.Available,
		OpenPositions:     openCount,
		MaxOpenPositions:  agent.MaxOpenPositions,
		ConsecutiveLosses: perf.ConsecutiveLosses,
		RecentWinRate:     perf.RecentWinRate,
		RecentPnL:         perf.RecentPnL,
		Drawdown:          perf.Drawdown,
		LiquidityBucket:   mc.LiquidityBucket,
		Spread:            mc.Spread,
		Volatility:        mc.Volatility,
		Signal: oracle.SignalSummary{
			Instrument: sig.Instrument,
			Direction:  sig.Direction,
			Confidence: sig.Confidence,
			Entry:      sig.Entry,
			Stop:       sig.Stop,
			Target:     sig.Target,
			RiskReward: sig.RiskReward,
			Quality:    string(sig.Quality.Grade),
		},
	}, nil
}

func (b *Broadcaster) recordExclusion(ctx context.Context, sig *composer.Signal, agentID string, reason ExclusionReason) {
	b.log.Debug().Str("signal_id", sig.ID).Str("agent_id", agentID).Str("reason", string(reason)).Msg("agent excluded")
	if b.cfg.Audit == nil {
		return
	}
	_ = b.cfg.Audit.LogSignalEvent(ctx, audit.EventTypeSignalExcluded, sig.ID, "agent excluded from broadcast", false, string(reason),
		map[string]interface{}{"agent_id": agentID, "instrument": sig.Instrument})
}

func (b *Broadcaster) recordValidation(ctx context.Context, sig *composer.Signal, agentID string, decision oracle.ValidationDecision, executed bool) {
	b.log.Debug().Str("signal_id", sig.ID).Str("agent_id", agentID).Bool("execute", executed).
		Str("risk_band", string(decision.RiskBand)).Msg("agent validated")
	if b.cfg.Audit == nil {
		return
	}
	_ = b.cfg.Audit.LogSignalEvent(ctx, audit.EventTypeSignalValidated, sig.ID, "agent validation decision", executed, decision.Reasoning,
		map[string]interface{}{"agent_id": agentID, "risk_band": string(decision.RiskBand)})
}
