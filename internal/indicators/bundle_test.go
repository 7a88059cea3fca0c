package indicators

import (
	"testing"
	"time"

	"github.com/solarflux/pulsetrader/internal/candle"
)

func syntheticCandles(count int) []candle.Candle {
	out := make([]candle.Candle, count)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		price := 100.0 + float64(i)*0.3
		open := base.Add(time.Duration(i) * time.Minute)
		out[i] = candle.Candle{
			OpenTime:  open,
			CloseTime: open.Add(time.Minute),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    10,
		}
	}
	return out
}

func TestCompute_InsufficientCandles(t *testing.T) {
	if _, err := Compute(syntheticCandles(10)); err == nil {
		t.Error("expected error for too few candles")
	}
}

func TestCompute_FullBundle(t *testing.T) {
	b, err := Compute(syntheticCandles(60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.EMA20 <= 0 || b.EMA50 <= 0 {
		t.Errorf("expected positive EMAs, got %+v", b)
	}
	if b.RSI < 0 || b.RSI > 100 {
		t.Errorf("RSI out of range: %.2f", b.RSI)
	}
	if b.ADX < 0 {
		t.Errorf("ADX should be non-negative: %.2f", b.ADX)
	}
	if b.ATR <= 0 {
		t.Errorf("expected positive ATR, got %.4f", b.ATR)
	}
	if b.Bollinger.Upper <= b.Bollinger.Lower {
		t.Errorf("expected upper band above lower band: %+v", b.Bollinger)
	}

	// A steady uptrend should price the fast EMA above the slow EMA.
	if b.EMA20 <= b.EMA50 {
		t.Errorf("expected EMA20 (%.2f) above EMA50 (%.2f) in an uptrend", b.EMA20, b.EMA50)
	}
}
