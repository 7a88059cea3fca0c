package composer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/solarflux/pulsetrader/internal/audit"
	"github.com/solarflux/pulsetrader/internal/candle"
	"github.com/solarflux/pulsetrader/internal/htf"
	"github.com/solarflux/pulsetrader/internal/indicators"
	"github.com/solarflux/pulsetrader/internal/metrics"
	"github.com/solarflux/pulsetrader/internal/oracle"
)

// Canonical rejection reasons: every rejected tick records exactly one of
// these.
const (
	ReasonSpacing             = "spacing"
	ReasonInvariantViolation  = "precondition_violation"
	ReasonCounterSplit        = "counter-split"
	ReasonSplit               = "split"
	ReasonBelowRequiredVotes  = "below_required_consensus"
	ReasonBelowConfidenceFloor = "below_confidence_floor"
	ReasonInvalidStopTarget   = "invalid_stop_target"
	ReasonBelowRRFloor        = "below_rr_floor"
	ReasonHTFCounterRejected  = "htf_counter_rejected"
)

// Config configures one Composer instance (one per instrument).
type Config struct {
	Instrument        string
	Primary           candle.Timeframe
	Supporting        []candle.Timeframe
	MinSignalInterval time.Duration // minimum spacing between emitted signals, default 60s
	InversionThreshold float64      // default 55, Step J
	BaseNotional      float64
}

// Source supplies the candle windows a Composer reads; satisfied by
// candle.Ingestor.
type Source interface {
	Window(tf candle.Timeframe) *candle.Window
}

// Composer runs the full Step A-L filter stack for one instrument on each
// primary-closed event.
type Composer struct {
	cfg     Config
	pool    *oracle.Pool
	htfCtx  *htf.Context
	source  Source
	log     zerolog.Logger
	audit   *audit.Logger

	limiter *rate.Limiter
	sf      singleflight.Group

	mu           sync.Mutex
	lastEmitted  time.Time
}

// New builds a Composer. interval defaults to 60s if zero. auditLogger may
// be nil (no-op).
func New(cfg Config, pool *oracle.Pool, htfCtx *htf.Context, source Source, auditLogger *audit.Logger, log zerolog.Logger) *Composer {
	if cfg.MinSignalInterval <= 0 {
		cfg.MinSignalInterval = 60 * time.Second
	}
	if cfg.InversionThreshold <= 0 {
		cfg.InversionThreshold = 55
	}
	if cfg.BaseNotional <= 0 {
		cfg.BaseNotional = 1000
	}
	return &Composer{
		cfg:     cfg,
		pool:    pool,
		htfCtx:  htfCtx,
		source:  source,
		audit:   auditLogger,
		log:     log.With().Str("component", "composer").Str("instrument", cfg.Instrument).Logger(),
		limiter: rate.NewLimiter(rate.Every(cfg.MinSignalInterval), 1),
	}
}

// OnPrimaryClosed runs one composition attempt for a primary-closed event.
// Concurrent calls for the same instrument are single-flighted so at most
// one composition is ever in flight.
func (c *Composer) OnPrimaryClosed(ctx context.Context, evt candle.PrimaryClosed) Outcome {
	v, _, _ := c.sf.Do(c.cfg.Instrument, func() (any, error) {
		start := time.Now()
		o := c.compose(ctx)
		metrics.RecordCompositionLatency(float64(time.Since(start).Milliseconds()))
		return o, nil
	})
	return v.(Outcome)
}

func (c *Composer) reject(reason string) Outcome {
	metrics.RecordSignalRejected(reason)
	if c.audit != nil {
		_ = c.audit.LogSignalEvent(context.Background(), audit.EventTypeSignalRejected, c.cfg.Instrument,
			"signal composition rejected", false, reason, map[string]interface{}{"instrument": c.cfg.Instrument})
	}
	return Outcome{Rejected: true, Reason: reason}
}

// compose runs the filter stack, Steps A-L, in order.
func (c *Composer) compose(ctx context.Context) Outcome {
	// Step A: minimum spacing.
	if !c.limiter.Allow() {
		return c.reject(ReasonSpacing)
	}

	primaryWindow := c.source.Window(c.cfg.Primary)
	if primaryWindow == nil || primaryWindow.Len() == 0 {
		return c.reject(ReasonInvariantViolation)
	}
	candles := primaryWindow.Snapshot()
	last, _ := primaryWindow.Tail()
	price := last.Close

	bundle, err := indicators.Compute(candles)
	if err != nil {
		c.log.Warn().Err(err).Msg("insufficient candles for indicators")
		return c.reject(ReasonInvariantViolation)
	}

	// Step B: per-timeframe analysis, primary then supporting.
	primaryAnalysis := c.pool.AnalyzePrimary(ctx, oracle.Input{
		Instrument: c.cfg.Instrument, Timeframe: c.cfg.Primary, Candles: candles,
		Indicators: bundle, CurrentPrice: price,
	})

	supportingDirections := make([]oracle.Recommendation, 0, len(c.cfg.Supporting))
	for _, tf := range c.cfg.Supporting {
		w := c.source.Window(tf)
		if w == nil || w.Len() == 0 {
			continue
		}
		sc := w.Snapshot()
		sb, err := indicators.Compute(sc)
		if err != nil {
			continue
		}
		stail, _ := w.Tail()
		sa := c.pool.AnalyzeSupporting(ctx, oracle.Input{
			Instrument: c.cfg.Instrument, Timeframe: tf, Candles: sc, Indicators: sb, CurrentPrice: stail.Close,
		})
		supportingDirections = append(supportingDirections, sa.Direction)
	}

	// Step C: consensus on primary.
	metrics.RecordConsensusPattern(string(primaryAnalysis.Pattern))
	if primaryAnalysis.Pattern == oracle.PatternCounterSplit {
		return c.reject(ReasonCounterSplit)
	}
	if primaryAnalysis.Pattern == oracle.PatternSplit {
		return c.reject(ReasonSplit)
	}

	direction := primaryAnalysis.Direction
	primaryConf := primaryConfidence(primaryAnalysis)

	// Step D: multi-timeframe confluence.
	confluence := confluenceScore(direction, supportingDirections)
	overallConf := primaryConf*0.7 + primaryConf*(confluence/100)*0.3

	// Step E: HTF proximity and trend.
	snap := c.htfCtx.Query(ctx, c.cfg.Instrument, price)
	htfAligned := htfLabelMatches(snap.Trend, direction)
	htfNeutral := snap.Trend == htf.Neutral
	htfCounter := !htfNeutral && !htfAligned

	// Step F: required consensus, dynamic.
	requiredVotes := requiredConsensusCount(overallConf, htfAligned)
	if votesFor(primaryAnalysis, direction) < requiredVotes {
		return c.reject(ReasonBelowRequiredVotes)
	}

	// Step G: minimum confidence floor.
	if overallConf < minConfidenceFloor {
		return c.reject(ReasonBelowConfidenceFloor)
	}

	// Step H: entry/stop/target.
	entry := price
	stopIn := StopTargetInputs{
		Entry: entry, Direction: direction, ATR: bundle.ATR, ATRPercent: bundle.ATRPercent,
		FibZoneBoundary: fibZoneBoundary(primaryAnalysis, direction),
		SRLevel:         srLevelFor(snap, direction),
	}
	stop, target, rr, ok := ComputeStopTarget(stopIn)
	if !ok {
		return c.reject(ReasonInvalidStopTarget)
	}

	// Step I: dynamic R:R floor.
	if rr < requiredMinRR(overallConf) {
		return c.reject(ReasonBelowRRFloor)
	}

	// Step J: HTF counter-trend handling and sizing.
	inverted := false
	htfMultiplier := 1.0
	switch {
	case htfCounter:
		if overallConf < c.cfg.InversionThreshold {
			return c.reject(ReasonHTFCounterRejected)
		}
		direction = invert(direction)
		stop, target = MirrorStopTarget(entry, stop, target, direction)
		inverted = true
		htfMultiplier = 1.0
	case htfNeutral:
		htfMultiplier = 0.5
	case htfAligned:
		htfMultiplier = 1.0
	}
	if snap.IsNearCriticalLevel && criticalConflicts(snap.CriticalLevelType, direction) {
		htfMultiplier *= 0.5
	}

	// Step K: professional-entry score.
	unanimous := primaryAnalysis.Pattern == oracle.PatternUnanimousBuy || primaryAnalysis.Pattern == oracle.PatternUnanimousSell
	pro := ProfessionalEntryScore(candles, price, direction, overallConf, unanimous, htfAligned)
	proMultiplier := SizeMultiplierForProScore(pro.Total, pro.Warnings)

	// Step L: quality score & grade.
	htfComponent := HTFAlignmentComponent(htfAligned, htfNeutral)
	quality := QualityScore(oracle.Tally{Buy: primaryAnalysis.VotesFor, Sell: primaryAnalysis.VotesAgainst, Hold: primaryAnalysis.VotesNeutral, Total: 4}, overallConf, rr, htfComponent, pro.Total)
	gradeMultiplier := GradeMultiplier(quality.Grade)

	finalSize := htfMultiplier * gradeMultiplier * proMultiplier

	sig := &Signal{
		ID:             uuid.NewString(),
		Instrument:     c.cfg.Instrument,
		Direction:      direction,
		Confidence:     overallConf,
		Entry:          entry,
		Stop:           stop,
		Target:         target,
		RiskReward:     rr,
		Quality:        quality,
		SizeMultiplier: finalSize,
		Reasoning:      reasoningSummary(primaryAnalysis),
		OriginOracles:  primaryAnalysis.Verdicts,
		HTFSnapshot:    snap,
		EmittedAt:      time.Now(),
		Audit: Audit{
			Tally:        oracle.Tally{Buy: primaryAnalysis.VotesFor, Sell: primaryAnalysis.VotesAgainst, Hold: primaryAnalysis.VotesNeutral, Total: 4},
			Pattern:      primaryAnalysis.Pattern,
			Confluence:   confluence,
			PrimaryConf:  primaryConf,
			OverallConf:  overallConf,
			HTFAligned:   htfAligned,
			HTFNeutral:   htfNeutral,
			HTFCounter:   htfCounter,
			Inverted:     inverted,
			Professional: pro,
		},
	}

	c.mu.Lock()
	c.lastEmitted = sig.EmittedAt
	c.mu.Unlock()

	metrics.RecordSignalComposed(string(sig.Direction), string(sig.Quality.Grade))

	if c.audit != nil {
		_ = c.audit.LogSignalEvent(ctx, audit.EventTypeSignalComposed, sig.ID,
			"signal composed", true, "", map[string]interface{}{
				"instrument": c.cfg.Instrument, "direction": string(sig.Direction), "grade": string(sig.Quality.Grade),
			})
	}

	return Outcome{Signal: sig}
}

func primaryConfidence(a oracle.TimeframeAnalysis) float64 {
	var sum float64
	var n int
	for _, v := range a.Verdicts {
		if v.Recommendation == a.Direction {
			sum += v.Confidence
			n++
		}
	}
	if n == 0 {
		// Fall back to the average across all four when nothing agrees
		// with the tallied direction (can only happen on HOLD-direction
		// patterns already rejected upstream).
		for _, v := range a.Verdicts {
			sum += v.Confidence
		}
		return sum / 4
	}
	return sum / float64(n)
}

func votesFor(a oracle.TimeframeAnalysis, direction oracle.Recommendation) int {
	switch direction {
	case oracle.Buy:
		return a.VotesFor
	case oracle.Sell:
		return a.VotesAgainst
	default:
		return 0
	}
}

func confluenceScore(primary oracle.Recommendation, supporting []oracle.Recommendation) float64 {
	if len(supporting) == 0 {
		return 0
	}
	matches := 0
	for _, d := range supporting {
		if d == primary {
			matches++
		}
	}
	return float64(matches) / float64(len(supporting)) * 100
}

func htfLabelMatches(trend htf.TrendLabel, direction oracle.Recommendation) bool {
	switch {
	case trend == htf.Bullish && direction == oracle.Buy:
		return true
	case trend == htf.Bearish && direction == oracle.Sell:
		return true
	default:
		return false
	}
}

func invert(direction oracle.Recommendation) oracle.Recommendation {
	if direction == oracle.Buy {
		return oracle.Sell
	}
	return oracle.Buy
}

func criticalConflicts(criticalType htf.LevelType, direction oracle.Recommendation) bool {
	return (criticalType == htf.Resistance && direction == oracle.Buy) ||
		(criticalType == htf.Support && direction == oracle.Sell)
}

// fibZoneBoundary pulls the Kind-Fibonacci verdict's entry-zone boundary on
// the trade side, or 0 if unavailable/unparseable.
func fibZoneBoundary(a oracle.TimeframeAnalysis, direction oracle.Recommendation) float64 {
	for _, v := range a.Verdicts {
		if v.Kind != oracle.KindFibonacci {
			continue
		}
		fields, ok := v.TypedFields.(oracle.FibonacciFields)
		if !ok {
			return 0
		}
		if direction == oracle.Buy {
			return fields.EntryZoneLow
		}
		return fields.EntryZoneHigh
	}
	return 0
}

// srLevelFor pulls the Kind-SupportResistance verdict's matching level for
// the trade side.
func srLevelFor(snap htf.Snapshot, direction oracle.Recommendation) float64 {
	if direction == oracle.Buy && snap.NearestSupport != nil {
		return snap.NearestSupport.Price
	}
	if direction == oracle.Sell && snap.NearestResistance != nil {
		return snap.NearestResistance.Price
	}
	return 0
}

func reasoningSummary(a oracle.TimeframeAnalysis) string {
	return fmt.Sprintf("pattern=%s votes=%d-%d-%d", a.Pattern, a.VotesFor, a.VotesAgainst, a.VotesNeutral)
}
