package oracle

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/solarflux/pulsetrader/internal/llm"
)

const trendMomentumSystemPrompt = `You are an EMA-trend and momentum analyst for a single candlestick timeframe. ` +
	`Classify the EMA20/EMA50 trend and the RSI/ADX-derived momentum strength. Respond as JSON: ` +
	`{"recommendation":"BUY|SELL|HOLD","confidence":0-100,"reasoning":"...",` +
	`"fields":{"ema_trend":"BULLISH|BEARISH|NEUTRAL","momentum":"STRONG|MODERATE|WEAK"}}.`

type trendWireFields struct {
	EMATrend string `json:"ema_trend"`
	Momentum string `json:"momentum"`
}

// NewTrendMomentumGrader builds the Kind-TrendMomentum oracle.
func NewTrendMomentumGrader(client llm.LLMClient, log zerolog.Logger) Grader {
	return &llmGrader{
		kind:         KindTrendMomentum,
		client:       client,
		systemPrompt: trendMomentumSystemPrompt,
		log:          log.With().Str("oracle", string(KindTrendMomentum)).Logger(),
		decodeFields: func(raw json.RawMessage) any {
			var w trendWireFields
			if err := json.Unmarshal(raw, &w); err != nil {
				return nil
			}
			return TrendMomentumFields{EMATrend: w.EMATrend, Momentum: w.Momentum}
		},
	}
}
