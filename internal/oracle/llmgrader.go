package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/solarflux/pulsetrader/internal/llm"
)

// llmResponse is the structured JSON every grader prompt asks its model for.
// Fields beyond Recommendation/Confidence/Reasoning are grader-specific and
// decoded separately into the kind's typed payload.
type llmResponse struct {
	Recommendation string          `json:"recommendation"`
	Confidence     float64         `json:"confidence"`
	Reasoning      string          `json:"reasoning"`
	Fields         json.RawMessage `json:"fields"`
}

// llmGrader is the shared transport for all four pattern oracles: each
// wraps an llm.LLMClient (the OpenAI-compatible chat client) with a
// kind-specific system prompt and typed-field decoder.
type llmGrader struct {
	kind         Kind
	client       llm.LLMClient
	systemPrompt string
	decodeFields func(json.RawMessage) any
	log          zerolog.Logger
}

func (g *llmGrader) Kind() Kind { return g.kind }

func (g *llmGrader) Analyze(ctx context.Context, in Input) (Verdict, error) {
	prompt := fmt.Sprintf(
		"instrument=%s timeframe=%s price=%.8f ema20=%.8f ema50=%.8f rsi=%.2f adx=%.2f atr=%.8f atr_pct=%.4f bb_upper=%.8f bb_lower=%.8f candles=%d",
		in.Instrument, in.Timeframe, in.CurrentPrice,
		in.Indicators.EMA20, in.Indicators.EMA50, in.Indicators.RSI, in.Indicators.ADX,
		in.Indicators.ATR, in.Indicators.ATRPercent,
		in.Indicators.Bollinger.Upper, in.Indicators.Bollinger.Lower, len(in.Candles),
	)

	raw, err := g.client.CompleteWithSystem(ctx, g.systemPrompt, prompt)
	if err != nil {
		return Verdict{}, fmt.Errorf("oracle %s: %w", g.kind, err)
	}

	var resp llmResponse
	if perr := g.client.ParseJSONResponse(raw, &resp); perr != nil {
		g.log.Warn().Err(perr).Str("kind", string(g.kind)).Msg("malformed oracle response, parsing from reasoning")
		resp = llmResponse{Reasoning: raw}
	}

	rec := ParseRecommendation(resp.Recommendation, resp.Reasoning)
	conf := ClampConfidence(resp.Confidence)

	var fields any
	if g.decodeFields != nil && resp.Fields != nil {
		fields = g.decodeFields(resp.Fields)
	}

	return Verdict{
		Kind:           g.kind,
		Recommendation: rec,
		Confidence:     conf,
		Reasoning:      resp.Reasoning,
		TypedFields:    fields,
	}, nil
}
