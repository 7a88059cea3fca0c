package composer

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/solarflux/pulsetrader/internal/candle"
	"github.com/solarflux/pulsetrader/internal/htf"
	"github.com/solarflux/pulsetrader/internal/oracle"
)

type fakeGrader struct {
	kind oracle.Kind
	v    oracle.Verdict
}

func (f fakeGrader) Kind() oracle.Kind { return f.kind }
func (f fakeGrader) Analyze(ctx context.Context, in oracle.Input) (oracle.Verdict, error) {
	v := f.v
	v.Kind = f.kind
	return v, nil
}

func buildCandles(n int, start, step float64) []candle.Candle {
	out := make([]candle.Candle, n)
	t := time.Now().Add(-time.Duration(n) * time.Hour)
	price := start
	for i := 0; i < n; i++ {
		c := candle.Candle{
			OpenTime: t, CloseTime: t.Add(time.Hour),
			Open: price, High: price * 1.01, Low: price * 0.99, Close: price + step,
			Volume: 100,
		}
		out[i] = c
		price += step
		t = t.Add(time.Hour)
	}
	return out
}

type fakeSource struct {
	windows map[candle.Timeframe]*candle.Window
}

func (s fakeSource) Window(tf candle.Timeframe) *candle.Window { return s.windows[tf] }

func newTestComposer(t *testing.T, recs [4]oracle.Recommendation, conf float64) (*Composer, *candle.Window) {
	t.Helper()
	kinds := [4]oracle.Kind{oracle.KindFibonacci, oracle.KindTrendMomentum, oracle.KindVolumePriceAction, oracle.KindSupportResistance}
	var graders [4]oracle.Grader
	for i := range graders {
		graders[i] = fakeGrader{kind: kinds[i], v: oracle.Verdict{Recommendation: recs[i], Confidence: conf}}
	}
	pool := oracle.NewPool(graders, zerolog.Nop())

	w := candle.NewWindow(100)
	w.Seed(buildCandles(80, 100, 0.5))

	source := fakeSource{windows: map[candle.Timeframe]*candle.Window{"1h": w}}
	htfCtx := htf.NewContext(nil, zerolog.Nop())

	cfg := Config{Instrument: "BTCUSDT", Primary: "1h", MinSignalInterval: time.Millisecond}
	return New(cfg, pool, htfCtx, source, nil, zerolog.Nop()), w
}

func TestComposerRejectsCounterSplit(t *testing.T) {
	c, _ := newTestComposer(t, [4]oracle.Recommendation{oracle.Buy, oracle.Buy, oracle.Sell, oracle.Sell}, 70)
	out := c.OnPrimaryClosed(context.Background(), candle.PrimaryClosed{Instrument: "BTCUSDT"})
	require.True(t, out.Rejected)
	require.Equal(t, ReasonCounterSplit, out.Reason)
}

func TestComposerEnforcesMinimumSpacing(t *testing.T) {
	c, _ := newTestComposer(t, [4]oracle.Recommendation{oracle.Buy, oracle.Buy, oracle.Buy, oracle.Buy}, 80)
	c.cfg.MinSignalInterval = time.Hour
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	first := c.OnPrimaryClosed(context.Background(), candle.PrimaryClosed{Instrument: "BTCUSDT"})
	require.False(t, first.Rejected)

	second := c.OnPrimaryClosed(context.Background(), candle.PrimaryClosed{Instrument: "BTCUSDT"})
	require.True(t, second.Rejected)
	require.Equal(t, ReasonSpacing, second.Reason)
}

func TestComposerEmitsUnanimousBuy(t *testing.T) {
	c, _ := newTestComposer(t, [4]oracle.Recommendation{oracle.Buy, oracle.Buy, oracle.Buy, oracle.Buy}, 80)
	out := c.OnPrimaryClosed(context.Background(), candle.PrimaryClosed{Instrument: "BTCUSDT"})
	require.False(t, out.Rejected, out.Reason)
	require.NotNil(t, out.Signal)
	require.Equal(t, oracle.Buy, out.Signal.Direction)
	require.Greater(t, out.Signal.RiskReward, 0.0)
}
