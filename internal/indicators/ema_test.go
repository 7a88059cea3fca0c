package indicators

import "testing"

func TestCurrentEMA(t *testing.T) {
	prices := []float64{
		44.0, 44.5, 45.0, 45.5, 46.0,
		46.5, 47.0, 47.5, 48.0, 48.5,
		49.0, 49.5, 50.0, 50.5, 51.0,
	}

	t.Run("valid calculation", func(t *testing.T) {
		ema, err := CurrentEMA(prices, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ema < prices[0]*0.8 || ema > prices[len(prices)-1]*1.2 {
			t.Errorf("EMA %.2f outside reasonable range", ema)
		}
	})

	t.Run("period too large", func(t *testing.T) {
		if _, err := CurrentEMA(prices, len(prices)+1); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("period zero", func(t *testing.T) {
		if _, err := CurrentEMA(prices, 0); err == nil {
			t.Error("expected error, got nil")
		}
	})
}

func TestEMA_TracksTrendDirection(t *testing.T) {
	uptrend := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24}
	ema, err := CurrentEMA(uptrend, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uptrend[len(uptrend)-1] <= ema {
		t.Errorf("expected last price %.2f above EMA %.2f in an uptrend", uptrend[len(uptrend)-1], ema)
	}

	downtrend := []float64{24, 23, 22, 21, 20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10}
	ema, err = CurrentEMA(downtrend, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if downtrend[len(downtrend)-1] >= ema {
		t.Errorf("expected last price %.2f below EMA %.2f in a downtrend", downtrend[len(downtrend)-1], ema)
	}
}

func TestEMA_ShorterPeriodRespondsFaster(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25}

	fast, err := CurrentEMA(prices, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slow, err := CurrentEMA(prices, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := prices[len(prices)-1]
	if (last - fast) >= (last - slow) {
		t.Errorf("expected the shorter-period EMA (%.2f) to sit closer to price %.2f than the longer one (%.2f)", fast, last, slow)
	}
}
