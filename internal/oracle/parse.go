package oracle

import "strings"

// buyWords/sellWords are the directional keyword sets used to recover a
// recommendation from free-text reasoning when an oracle's structured field
// is absent or unparseable ("in a tie, return HOLD,
// never silently bias toward BUY").
var buyWords = []string{"buy", "bullish", "long", "uptrend", "breakout", "accumulate"}
var sellWords = []string{"sell", "bearish", "short", "downtrend", "breakdown", "distribute"}

// ParseRecommendation prefers the structured field when it is one of
// BUY/SELL/HOLD; otherwise it counts directional keywords in reasoning and
// returns the majority side, or HOLD on a tie (including 0-0).
func ParseRecommendation(structured, reasoning string) Recommendation {
	switch Recommendation(strings.ToUpper(strings.TrimSpace(structured))) {
	case Buy:
		return Buy
	case Sell:
		return Sell
	case Hold:
		return Hold
	}

	lower := strings.ToLower(reasoning)
	buyCount := countWords(lower, buyWords)
	sellCount := countWords(lower, sellWords)

	switch {
	case buyCount > sellCount:
		return Buy
	case sellCount > buyCount:
		return Sell
	default:
		return Hold
	}
}

func countWords(text string, words []string) int {
	count := 0
	for _, w := range words {
		count += strings.Count(text, w)
	}
	return count
}

// ClampConfidence bounds a parsed confidence value to [0,100].
func ClampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
