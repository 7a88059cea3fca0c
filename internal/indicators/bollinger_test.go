package indicators

import (
	"math"
	"testing"
)

func generatePriceData(count int, base, amplitude float64) []float64 {
	prices := make([]float64, count)
	for i := 0; i < count; i++ {
		prices[i] = base + amplitude*math.Sin(float64(i)/3.0)
	}
	return prices
}

func TestCurrentBollinger_DefaultPeriod(t *testing.T) {
	prices := generatePriceData(30, 100.0, 2.0)

	bb, err := CurrentBollinger(prices, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bb.Upper <= bb.Middle || bb.Middle <= bb.Lower {
		t.Errorf("expected upper > middle > lower, got %+v", bb)
	}
}

func TestCurrentBollinger_CustomPeriod(t *testing.T) {
	prices := generatePriceData(30, 100.0, 2.0)

	if _, err := CurrentBollinger(prices, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBollingerBands_Width(t *testing.T) {
	bb := BollingerBands{Upper: 110, Middle: 100, Lower: 90}
	if got := bb.Width(); math.Abs(got-20) > 1e-9 {
		t.Errorf("expected width 20, got %.4f", got)
	}
}

func TestBollingerBands_WidthZeroMiddle(t *testing.T) {
	bb := BollingerBands{Upper: 10, Middle: 0, Lower: -10}
	if got := bb.Width(); got != 0 {
		t.Errorf("expected width 0 for zero middle band, got %.4f", got)
	}
}

func TestCurrentBollinger_PeriodTooSmall(t *testing.T) {
	prices := generatePriceData(30, 100.0, 2.0)
	if _, err := CurrentBollinger(prices, 1); err == nil {
		t.Error("expected error for period < 2")
	}
}

func TestCurrentBollinger_PeriodTooLarge(t *testing.T) {
	prices := generatePriceData(10, 100.0, 2.0)
	if _, err := CurrentBollinger(prices, 20); err == nil {
		t.Error("expected error for period exceeding data length")
	}
}
