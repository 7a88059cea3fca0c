package htf

import "sort"

const dedupeBand = 0.003 // 0.3% of price

// timeframeRank orders timeframes for the "higher timeframe wins" tie-break
// (weekly > daily > 4h).
func timeframeRank(tf Timeframe) int {
	switch tf {
	case TF1w:
		return 3
	case TF1d:
		return 2
	case TF4h:
		return 1
	default:
		return 0
	}
}

// Dedupe collapses levels of the same Type within dedupeBand of each other.
// The survivor is the one with more touches; ties are broken by the higher
// timeframe (weekly > daily > 4h).
func Dedupe(levels []Level) []Level {
	sorted := make([]Level, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	var out []Level
	for _, lvl := range sorted {
		merged := false
		for i := range out {
			if out[i].Type != lvl.Type {
				continue
			}
			ref := out[i].Price
			if ref == 0 {
				continue
			}
			diff := lvl.Price - ref
			if diff < 0 {
				diff = -diff
			}
			if diff/ref <= dedupeBand {
				if survives(lvl, out[i]) {
					out[i] = lvl
				}
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, lvl)
		}
	}
	return out
}

// survives reports whether candidate should replace incumbent as the
// surviving level of a dedupe group.
func survives(candidate, incumbent Level) bool {
	if candidate.Touches != incumbent.Touches {
		return candidate.Touches > incumbent.Touches
	}
	return timeframeRank(candidate.Timeframe) > timeframeRank(incumbent.Timeframe)
}
