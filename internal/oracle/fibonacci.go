package oracle

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/solarflux/pulsetrader/internal/llm"
)

const fibonacciSystemPrompt = `You are a Fibonacci retracement/extension analyst for a single candlestick timeframe. ` +
	`Identify the current Fibonacci level the price sits at relative to the latest swing impulse and whether price is ` +
	`inside a favorable entry zone. Respond as JSON: {"recommendation":"BUY|SELL|HOLD","confidence":0-100,"reasoning":"...",` +
	`"fields":{"current_level":"61.8%","entry_zone_low":0,"entry_zone_high":0}}.`

type fibonacciWireFields struct {
	CurrentLevel  string  `json:"current_level"`
	EntryZoneLow  float64 `json:"entry_zone_low"`
	EntryZoneHigh float64 `json:"entry_zone_high"`
}

// NewFibonacciGrader builds the Kind-Fibonacci oracle.
func NewFibonacciGrader(client llm.LLMClient, log zerolog.Logger) Grader {
	return &llmGrader{
		kind:         KindFibonacci,
		client:       client,
		systemPrompt: fibonacciSystemPrompt,
		log:          log.With().Str("oracle", string(KindFibonacci)).Logger(),
		decodeFields: func(raw json.RawMessage) any {
			var w fibonacciWireFields
			if err := json.Unmarshal(raw, &w); err != nil {
				return nil
			}
			return FibonacciFields{
				CurrentLevel:  w.CurrentLevel,
				EntryZoneLow:  w.EntryZoneLow,
				EntryZoneHigh: w.EntryZoneHigh,
			}
		},
	}
}
