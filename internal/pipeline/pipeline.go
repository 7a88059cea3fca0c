// Package pipeline supervises the six pipeline components: it owns the
// primary-closed dispatch loop that drives composition, broadcast, and
// position monitoring, the executor worker pool, and the pause/resume
// control surface.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/solarflux/pulsetrader/internal/alerts"
	"github.com/solarflux/pulsetrader/internal/broadcast"
	"github.com/solarflux/pulsetrader/internal/candle"
	"github.com/solarflux/pulsetrader/internal/catalog"
	"github.com/solarflux/pulsetrader/internal/composer"
	"github.com/solarflux/pulsetrader/internal/db"
	"github.com/solarflux/pulsetrader/internal/executor"
)

// Components holds the already-constructed pipeline components, wired in
// dependency order by the caller (cmd/pipeline).
type Components struct {
	DB          *db.DB
	NATS        *nats.Conn
	Catalog     catalog.Catalog
	Ingestors   map[string]*candle.Ingestor   // instrument -> ingestor
	Composers   map[string]*composer.Composer // instrument -> composer
	Broadcaster *broadcast.Broadcaster
	Executor    *executor.Executor
	Monitor     *executor.Monitor
	Alerts      *alerts.Manager
}

// Pipeline runs the components as one long-lived unit: Start brings
// everything up in dependency order, Shutdown tears it down idempotently.
type Pipeline struct {
	comps Components
	log   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	running bool
	paused  bool
}

// New builds a Pipeline over comps.
func New(comps Components, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		comps: comps,
		log:   log.With().Str("component", "pipeline").Logger(),
	}
}

// Start brings the pipeline up: restores persisted pause state, reconciles
// open positions into the monitor, starts every ingestor, the executor
// worker pool, and one dispatch loop per instrument. Calling Start on a
// running pipeline is an error; Stop/Start cycles are fine.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("pipeline already running")
	}
	p.running = true
	p.mu.Unlock()

	p.ctx, p.cancel = context.WithCancel(ctx)

	// Restore the operator's pause decision across restarts.
	if p.comps.DB != nil {
		if paused, err := p.comps.DB.IsTradingPaused(p.ctx); err != nil {
			p.log.Warn().Err(err).Msg("could not read persisted pause state, starting unpaused")
		} else if paused {
			p.mu.Lock()
			p.paused = true
			p.mu.Unlock()
			p.log.Warn().Msg("pipeline starts paused (persisted operator pause)")
		}
	}

	// Rebuild the monitored-position set before any primary close fires.
	if p.comps.Monitor != nil {
		if err := p.comps.Monitor.Reconcile(p.ctx); err != nil {
			p.log.Error().Err(err).Msg("position reconciliation failed, continuing with empty monitor set")
		}
	}

	for instrument, ing := range p.comps.Ingestors {
		if err := ing.Start(); err != nil {
			p.cancel()
			return fmt.Errorf("start ingestor for %s: %w", instrument, err)
		}
	}

	if p.comps.Executor != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := p.comps.Executor.Run(p.ctx); err != nil && p.ctx.Err() == nil {
				p.log.Error().Err(err).Msg("executor stopped unexpectedly")
				if p.comps.Alerts != nil {
					_ = p.comps.Alerts.SendCritical(context.Background(), "Executor halted",
						err.Error(), map[string]interface{}{"component": "executor"})
				}
			}
		}()
	}

	for instrument := range p.comps.Ingestors {
		instrument := instrument
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.dispatch(instrument)
		}()
	}

	p.log.Info().Int("instruments", len(p.comps.Ingestors)).Msg("pipeline started")
	return nil
}

// dispatch consumes primary-closed events for one instrument and drives the
// composer, broadcaster, and monitor in order. The ingestor's channel
// already coalesces to at-most-one-pending, and the composer single-flights
// per instrument, so this loop never stacks compositions.
func (p *Pipeline) dispatch(instrument string) {
	ing := p.comps.Ingestors[instrument]
	comp := p.comps.Composers[instrument]
	log := p.log.With().Str("instrument", instrument).Logger()

	for {
		select {
		case <-p.ctx.Done():
			return
		case evt, ok := <-ing.PrimaryClosed():
			if !ok {
				return
			}
			if p.IsPaused() {
				log.Debug().Msg("primary close skipped: trading paused")
				continue
			}

			if comp != nil {
				outcome := comp.OnPrimaryClosed(p.ctx, evt)
				switch {
				case outcome.Signal != nil:
					log.Info().Str("signal_id", outcome.Signal.ID).
						Str("direction", string(outcome.Signal.Direction)).
						Str("grade", string(outcome.Signal.Quality.Grade)).
						Msg("signal composed, broadcasting")
					if p.comps.Broadcaster != nil {
						if err := p.comps.Broadcaster.Broadcast(p.ctx, outcome.Signal); err != nil {
							log.Error().Err(err).Str("signal_id", outcome.Signal.ID).Msg("broadcast failed")
						}
					}
				case outcome.Rejected:
					log.Debug().Str("reason", outcome.Reason).Msg("composition rejected")
				}
			}

			// The monitor runs on the same primary-closed clock as the
			// composer, after it, so exits see the same finalized candle.
			if p.comps.Monitor != nil {
				p.comps.Monitor.OnPrimaryClosed(p.ctx, instrument)
			}
		}
	}
}

// Pause stops composition and monitoring decisions until Resume. The
// decision is persisted so a restart comes back paused.
func (p *Pipeline) Pause(pausedBy, reason string) error {
	p.mu.Lock()
	if p.paused {
		p.mu.Unlock()
		return fmt.Errorf("trading is already paused")
	}
	p.paused = true
	p.mu.Unlock()

	if p.comps.DB != nil {
		if err := p.comps.DB.SetPipelinePaused(context.Background(), pausedBy, reason); err != nil {
			p.log.Warn().Err(err).Msg("pause applied in-process but not persisted")
		}
	}
	p.log.Info().Str("paused_by", pausedBy).Str("reason", reason).Msg("trading paused")
	return nil
}

// Resume re-enables composition and monitoring decisions.
func (p *Pipeline) Resume() error {
	p.mu.Lock()
	if !p.paused {
		p.mu.Unlock()
		return fmt.Errorf("trading is not paused")
	}
	p.paused = false
	p.mu.Unlock()

	if p.comps.DB != nil {
		if err := p.comps.DB.SetPipelineResumed(context.Background()); err != nil {
			p.log.Warn().Err(err).Msg("resume applied in-process but not persisted")
		}
	}
	p.log.Info().Msg("trading resumed")
	return nil
}

// IsPaused returns whether trading is currently paused
func (p *Pipeline) IsPaused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

// Status summarizes the pipeline for the control surface.
func (p *Pipeline) Status(ctx context.Context) map[string]interface{} {
	p.mu.RLock()
	running := p.running
	paused := p.paused
	p.mu.RUnlock()

	status := map[string]interface{}{
		"running":     running,
		"paused":      paused,
		"instruments": len(p.comps.Ingestors),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	if p.comps.Monitor != nil {
		status["monitored_positions"] = p.comps.Monitor.Count()
	}
	if p.comps.Catalog != nil {
		if agents, err := p.comps.Catalog.List(ctx); err == nil {
			active := 0
			for _, a := range agents {
				if a.IsActive {
					active++
				}
			}
			status["active_agents"] = active
		}
	}
	return status
}

// ActiveAgentCount returns the number of active agents in the catalog, or 0
// if the catalog is unavailable.
func (p *Pipeline) ActiveAgentCount(ctx context.Context) int {
	if p.comps.Catalog == nil {
		return 0
	}
	agents, err := p.comps.Catalog.List(ctx)
	if err != nil {
		return 0
	}
	active := 0
	for _, a := range agents {
		if a.IsActive {
			active++
		}
	}
	return active
}

// DB exposes the database handle for health checks.
func (p *Pipeline) DB() *db.DB { return p.comps.DB }

// NATSConnection exposes the NATS connection for health checks.
func (p *Pipeline) NATSConnection() *nats.Conn { return p.comps.NATS }

// Shutdown stops the pipeline: ingestors first (no new events), then the
// dispatch loops and executor via context cancellation. Idempotent.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.log.Info().Msg("shutting down pipeline")

	for _, ing := range p.comps.Ingestors {
		ing.Stop()
	}
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info().Msg("pipeline shutdown complete")
		return nil
	case <-ctx.Done():
		p.log.Warn().Msg("pipeline shutdown timeout")
		return ctx.Err()
	}
}
