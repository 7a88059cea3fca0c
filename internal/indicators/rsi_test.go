package indicators

import "testing"

func TestCurrentRSI(t *testing.T) {
	prices := []float64{
		44.0, 44.5, 45.0, 45.5, 46.0,
		46.5, 47.0, 47.5, 48.0, 48.5,
		49.0, 49.5, 50.0, 50.5, 51.0,
		51.5, 52.0, 52.5, 53.0, 53.5,
	}

	t.Run("default period", func(t *testing.T) {
		rsi, err := CurrentRSI(prices, 14)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rsi < 0 || rsi > 100 {
			t.Errorf("RSI %.2f out of [0,100] range", rsi)
		}
	})

	t.Run("steady uptrend pushes RSI above midline", func(t *testing.T) {
		rsi, err := CurrentRSI(prices, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rsi <= 50 {
			t.Errorf("expected RSI above 50 for a steady uptrend, got %.2f", rsi)
		}
	})

	t.Run("period too large", func(t *testing.T) {
		if _, err := CurrentRSI(prices, len(prices)+1); err == nil {
			t.Error("expected error, got nil")
		}
	})
}
