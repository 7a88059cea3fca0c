package oracle

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/solarflux/pulsetrader/internal/llm"
)

const volumePriceActionSystemPrompt = `You are a volume and price-action analyst for a single candlestick timeframe. ` +
	`Look for reversal candles and volume spikes that confirm or deny the prevailing direction. Respond as JSON: ` +
	`{"recommendation":"BUY|SELL|HOLD","confidence":0-100,"reasoning":"...",` +
	`"fields":{"reversal_candle":false,"volume_spike":false}}.`

type volumeWireFields struct {
	ReversalCandle bool `json:"reversal_candle"`
	VolumeSpike    bool `json:"volume_spike"`
}

// NewVolumePriceActionGrader builds the Kind-VolumePriceAction oracle.
func NewVolumePriceActionGrader(client llm.LLMClient, log zerolog.Logger) Grader {
	return &llmGrader{
		kind:         KindVolumePriceAction,
		client:       client,
		systemPrompt: volumePriceActionSystemPrompt,
		log:          log.With().Str("oracle", string(KindVolumePriceAction)).Logger(),
		decodeFields: func(raw json.RawMessage) any {
			var w volumeWireFields
			if err := json.Unmarshal(raw, &w); err != nil {
				return nil
			}
			return VolumePriceActionFields{ReversalCandle: w.ReversalCandle, VolumeSpike: w.VolumeSpike}
		},
	}
}
