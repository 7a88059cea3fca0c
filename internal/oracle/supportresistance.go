package oracle

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/solarflux/pulsetrader/internal/llm"
)

const supportResistanceSystemPrompt = `You are a support/resistance analyst for a single candlestick timeframe. ` +
	`Identify the nearest intraday support and resistance and whether price has crossed either boundary. Respond as JSON: ` +
	`{"recommendation":"BUY|SELL|HOLD","confidence":0-100,"reasoning":"...",` +
	`"fields":{"nearest_support":0,"nearest_resistance":0,"crossed":false}}.`

type supportResistanceWireFields struct {
	NearestSupport    float64 `json:"nearest_support"`
	NearestResistance float64 `json:"nearest_resistance"`
	Crossed           bool    `json:"crossed"`
}

// NewSupportResistanceGrader builds the Kind-SupportResistance oracle.
func NewSupportResistanceGrader(client llm.LLMClient, log zerolog.Logger) Grader {
	return &llmGrader{
		kind:         KindSupportResistance,
		client:       client,
		systemPrompt: supportResistanceSystemPrompt,
		log:          log.With().Str("oracle", string(KindSupportResistance)).Logger(),
		decodeFields: func(raw json.RawMessage) any {
			var w supportResistanceWireFields
			if err := json.Unmarshal(raw, &w); err != nil {
				return nil
			}
			return SupportResistanceFields{
				NearestSupport:    w.NearestSupport,
				NearestResistance: w.NearestResistance,
				Crossed:           w.Crossed,
			}
		},
	}
}
