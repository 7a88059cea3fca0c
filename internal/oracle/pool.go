package oracle

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/solarflux/pulsetrader/internal/metrics"
)

// oracleTimeout bounds each individual oracle call. A deadline does not abort the rest of the tick - the missing piece
// substitutes the sentinel verdict.
const oracleTimeout = 30 * time.Second

// Pool holds the four independent, opaque pattern graders and runs them
// concurrently against one timeframe snapshot at a time.
type Pool struct {
	graders [4]Grader
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewPool builds a Pool from exactly the four grader kinds; order does not
// matter, Kind() is read from each.
func NewPool(graders [4]Grader, log zerolog.Logger) *Pool {
	return &Pool{graders: graders, log: log.With().Str("component", "oracle_pool").Logger()}
}

// SetBreaker installs a shared circuit breaker around every grader call. A
// tripped breaker short-circuits to the sentinel verdict without dialing
// out, so a dead oracle backend stops costing 30s per grader per tick.
func (p *Pool) SetBreaker(cb *gobreaker.CircuitBreaker) {
	p.breaker = cb
}

func (p *Pool) analyzeOne(ctx context.Context, grader Grader, in Input) (Verdict, error) {
	if p.breaker == nil {
		return grader.Analyze(ctx, in)
	}
	v, err := p.breaker.Execute(func() (interface{}, error) {
		return grader.Analyze(ctx, in)
	})
	if err != nil {
		return Verdict{}, err
	}
	return v.(Verdict), nil
}

// Analyze runs all four graders concurrently against in and returns the
// combined TimeframeAnalysis. Any grader that errors or exceeds
// oracleTimeout is substituted with its HOLD/0 sentinel rather than
// blocking or failing the tick.
func (p *Pool) Analyze(ctx context.Context, in Input) TimeframeAnalysis {
	var verdicts [4]Verdict
	g, gctx := errgroup.WithContext(ctx)

	for i, grader := range p.graders {
		i, grader := i, grader
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, oracleTimeout)
			defer cancel()

			start := time.Now()
			v, err := p.analyzeOne(callCtx, grader, in)
			metrics.RecordOracleCall(string(grader.Kind()), float64(time.Since(start).Milliseconds()), err != nil)
			if err != nil {
				p.log.Warn().Err(err).Str("kind", string(grader.Kind())).Msg("oracle failed, substituting sentinel")
				v = Sentinel(grader.Kind())
			}
			verdicts[i] = v
			return nil
		})
	}
	// errgroup.Go never returns a non-nil error above (failures are
	// substituted, not propagated), so Wait cannot fail.
	_ = g.Wait()

	return buildAnalysis(TimeframeAnalysis{Timeframe: in.Timeframe}, verdicts)
}

// AnalyzePrimary is Analyze restricted to the primary timeframe; kept as a
// distinct entry point so callers (the Composer) read naturally against
// the consensus tally.
func (p *Pool) AnalyzePrimary(ctx context.Context, in Input) TimeframeAnalysis {
	return p.Analyze(ctx, in)
}

// AnalyzeSupporting is Analyze restricted to a supporting timeframe; the
// caller uses only .Direction for confluence.
func (p *Pool) AnalyzeSupporting(ctx context.Context, in Input) TimeframeAnalysis {
	return p.Analyze(ctx, in)
}
