package indicators

import "testing"

func syntheticOHLC(count int) (high, low, close []float64) {
	high = make([]float64, count)
	low = make([]float64, count)
	close = make([]float64, count)
	for i := 0; i < count; i++ {
		base := 100.0 + float64(i)*0.5
		high[i] = base + 2.0
		low[i] = base - 2.0
		close[i] = base
	}
	return
}

func TestADX_ValidCalculation(t *testing.T) {
	high, low, close := syntheticOHLC(50)

	adx, err := ADX(high, low, close, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adx < 0 || adx > 100 {
		t.Errorf("ADX %.2f out of expected [0,100] range", adx)
	}
}

func TestADX_CustomPeriod(t *testing.T) {
	high, low, close := syntheticOHLC(50)
	if _, err := ADX(high, low, close, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestADX_MismatchedLengths(t *testing.T) {
	high, low, close := syntheticOHLC(50)
	if _, err := ADX(high, low[:10], close, 14); err == nil {
		t.Error("expected error for mismatched array lengths")
	}
}

func TestADX_InsufficientData(t *testing.T) {
	high, low, close := syntheticOHLC(10)
	if _, err := ADX(high, low, close, 14); err == nil {
		t.Error("expected error for insufficient data")
	}
}

func TestADX_StrongTrendExceedsWeakThreshold(t *testing.T) {
	// A persistent, steep, one-directional move should register a
	// meaningfully non-zero ADX versus a flat series.
	high, low, close := syntheticOHLC(60)
	trending, err := ADX(high, low, close, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	flatHigh := make([]float64, 60)
	flatLow := make([]float64, 60)
	flatClose := make([]float64, 60)
	for i := range flatClose {
		flatHigh[i] = 101
		flatLow[i] = 99
		flatClose[i] = 100
	}
	flat, err := ADX(flatHigh, flatLow, flatClose, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trending <= flat {
		t.Errorf("expected trending ADX (%.2f) to exceed flat-market ADX (%.2f)", trending, flat)
	}
}
