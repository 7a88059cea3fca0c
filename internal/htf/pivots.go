package htf

import "github.com/solarflux/pulsetrader/internal/candle"

// FibPivots derives the classic Fibonacci-pivot level ladder from the
// previous finalized bar on a timeframe:
//
//	PP  = (H+L+C)/3
//	R1/S1 = PP +/- 0.382*(H-L)
//	R2/S2 = PP +/- 0.618*(H-L)
//	R3/S3 = PP +/- 1.000*(H-L)
//
// PP is published as a SUPPORT token by convention.
func FibPivots(tf Timeframe, candles []candle.Candle) []Level {
	if len(candles) == 0 {
		return nil
	}
	prev := candles[len(candles)-1]
	h, l, c := prev.High, prev.Low, prev.Close
	pp := (h + l + c) / 3
	rng := h - l

	mk := func(price float64, typ LevelType, label string) Level {
		return Level{Price: price, Timeframe: tf, Type: typ, Strength: Moderate, SourceKind: FibPivot, FibLabel: label}
	}

	return []Level{
		mk(pp, Support, "PP"),
		mk(pp+0.382*rng, Resistance, "R1"),
		mk(pp-0.382*rng, Support, "S1"),
		mk(pp+0.618*rng, Resistance, "R2"),
		mk(pp-0.618*rng, Support, "S2"),
		mk(pp+1.000*rng, Resistance, "R3"),
		mk(pp-1.000*rng, Support, "S3"),
	}
}
