package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGrader struct {
	kind    Kind
	verdict Verdict
	err     error
}

func (s stubGrader) Kind() Kind { return s.kind }
func (s stubGrader) Analyze(ctx context.Context, in Input) (Verdict, error) {
	if s.err != nil {
		return Verdict{}, s.err
	}
	return s.verdict, nil
}

func grader(kind Kind, rec Recommendation, conf float64) Grader {
	return stubGrader{kind: kind, verdict: Verdict{Kind: kind, Recommendation: rec, Confidence: conf}}
}

func TestPoolAnalyzeAllSucceed(t *testing.T) {
	pool := NewPool([4]Grader{
		grader(KindFibonacci, Buy, 85),
		grader(KindTrendMomentum, Buy, 80),
		grader(KindVolumePriceAction, Buy, 75),
		grader(KindSupportResistance, Buy, 80),
	}, zerolog.Nop())

	analysis := pool.AnalyzePrimary(context.Background(), Input{Timeframe: "15m"})

	assert.Equal(t, 4, analysis.VotesFor)
	assert.Equal(t, 0, analysis.VotesAgainst)
	assert.Equal(t, 0, analysis.VotesNeutral)
	assert.Equal(t, Buy, analysis.Direction)
	assert.Equal(t, PatternUnanimousBuy, analysis.Pattern)
}

func TestPoolSubstitutesSentinelOnFailure(t *testing.T) {
	pool := NewPool([4]Grader{
		grader(KindFibonacci, Buy, 85),
		grader(KindTrendMomentum, Buy, 80),
		grader(KindVolumePriceAction, Buy, 75),
		stubGrader{kind: KindSupportResistance, err: errors.New("oracle unreachable")},
	}, zerolog.Nop())

	analysis := pool.AnalyzePrimary(context.Background(), Input{Timeframe: "15m"})

	// The failed grader becomes a HOLD/0 sentinel; the other three still
	// count, so the tick is not blocked.
	assert.Equal(t, 3, analysis.VotesFor)
	assert.Equal(t, 1, analysis.VotesNeutral)
	assert.Equal(t, PatternSupermajority, analysis.Pattern)

	var sentinel *Verdict
	for i := range analysis.Verdicts {
		if analysis.Verdicts[i].Kind == KindSupportResistance {
			sentinel = &analysis.Verdicts[i]
		}
	}
	require.NotNil(t, sentinel)
	assert.Equal(t, Hold, sentinel.Recommendation)
	assert.Equal(t, 0.0, sentinel.Confidence)
}

func TestPoolBreakerShortCircuits(t *testing.T) {
	pool := NewPool([4]Grader{
		grader(KindFibonacci, Buy, 85),
		grader(KindTrendMomentum, Buy, 80),
		grader(KindVolumePriceAction, Buy, 75),
		grader(KindSupportResistance, Buy, 80),
	}, zerolog.Nop())

	// A breaker that is already open: every call short-circuits to the
	// sentinel without reaching a grader.
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "oracle_test",
		MaxRequests: 1,
		Timeout:     time.Hour,
		ReadyToTrip: func(counts gobreaker.Counts) bool { return true },
	})
	_, _ = cb.Execute(func() (interface{}, error) { return nil, errors.New("trip") })
	pool.SetBreaker(cb)

	analysis := pool.AnalyzePrimary(context.Background(), Input{Timeframe: "15m"})
	assert.Equal(t, 4, analysis.VotesNeutral)
	assert.Equal(t, Hold, analysis.Direction)
}

func TestPoolAllFailStillReturns(t *testing.T) {
	broken := errors.New("down")
	pool := NewPool([4]Grader{
		stubGrader{kind: KindFibonacci, err: broken},
		stubGrader{kind: KindTrendMomentum, err: broken},
		stubGrader{kind: KindVolumePriceAction, err: broken},
		stubGrader{kind: KindSupportResistance, err: broken},
	}, zerolog.Nop())

	analysis := pool.AnalyzePrimary(context.Background(), Input{Timeframe: "15m"})

	assert.Equal(t, 4, analysis.VotesNeutral)
	assert.Equal(t, Hold, analysis.Direction)
}
