package indicators

import (
	"fmt"

	"github.com/solarflux/pulsetrader/internal/candle"
)

// Bundle is the indicator snapshot computed fresh from a candle window on
// every tick; it carries no state of its own between calls.
type Bundle struct {
	EMA20      float64
	EMA50      float64
	RSI        float64
	ADX        float64
	ATR        float64
	ATRPercent float64
	Bollinger  BollingerBands
}

const (
	emaFastPeriod  = 20
	emaSlowPeriod  = 50
	rsiPeriod      = 14
	adxPeriod      = 14
	atrPeriod      = 14
	bollingerSpan  = 20
	minBundleInput = emaSlowPeriod
)

// Compute derives a Bundle from candles, oldest first. It requires at least
// minBundleInput candles (the longest period any component indicator needs)
// and returns an error otherwise rather than silently truncating the window.
func Compute(candles []candle.Candle) (Bundle, error) {
	if len(candles) < minBundleInput {
		return Bundle{}, fmt.Errorf("indicators: need at least %d candles, got %d", minBundleInput, len(candles))
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	ema20, err := CurrentEMA(closes, emaFastPeriod)
	if err != nil {
		return Bundle{}, fmt.Errorf("ema20: %w", err)
	}
	ema50, err := CurrentEMA(closes, emaSlowPeriod)
	if err != nil {
		return Bundle{}, fmt.Errorf("ema50: %w", err)
	}
	rsi, err := CurrentRSI(closes, rsiPeriod)
	if err != nil {
		return Bundle{}, fmt.Errorf("rsi: %w", err)
	}
	adx, err := ADX(highs, lows, closes, adxPeriod)
	if err != nil {
		return Bundle{}, fmt.Errorf("adx: %w", err)
	}
	atr, err := ATR(highs, lows, closes, atrPeriod)
	if err != nil {
		return Bundle{}, fmt.Errorf("atr: %w", err)
	}
	atrPct, err := ATRPercent(highs, lows, closes, atrPeriod, closes[len(closes)-1])
	if err != nil {
		return Bundle{}, fmt.Errorf("atr percent: %w", err)
	}
	bb, err := CurrentBollinger(closes, bollingerSpan)
	if err != nil {
		return Bundle{}, fmt.Errorf("bollinger: %w", err)
	}

	return Bundle{
		EMA20:      ema20,
		EMA50:      ema50,
		RSI:        rsi,
		ADX:        adx,
		ATR:        atr,
		ATRPercent: atrPct,
		Bollinger:  bb,
	}, nil
}
