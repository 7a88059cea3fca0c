package oracle

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/solarflux/pulsetrader/internal/llm"
)

const validationSystemPrompt = `You are a per-agent trade validation oracle. Given an agent's budget, balance, ` +
	`open positions, recent performance and current market conditions, plus a candidate trade signal, decide whether ` +
	`the agent should execute it and at what risk band. Respond as JSON: {"should_execute":true,"risk_band":` +
	`"SAFE|MODERATE|RISKY","reasoning":"...","confidence":0-100,"key_risks":["..."],"key_opportunities":["..."],` +
	`"stop_override":null,"target_override":null}.`

type validationWireResponse struct {
	ShouldExecute    bool     `json:"should_execute"`
	RiskBand         string   `json:"risk_band"`
	Reasoning        string   `json:"reasoning"`
	Confidence       float64  `json:"confidence"`
	KeyRisks         []string `json:"key_risks"`
	KeyOpportunities []string `json:"key_opportunities"`
	StopOverride     *float64 `json:"stop_override"`
	TargetOverride   *float64 `json:"target_override"`
}

// llmValidationOracle implements ValidationOracle over the shared
// llm.LLMClient transport, the same gateway the pattern graders use.
type llmValidationOracle struct {
	client llm.LLMClient
	log    zerolog.Logger
}

// NewLLMValidationOracle builds a ValidationOracle backed by client.
func NewLLMValidationOracle(client llm.LLMClient, log zerolog.Logger) ValidationOracle {
	return &llmValidationOracle{client: client, log: log.With().Str("component", "validation_oracle").Logger()}
}

func (o *llmValidationOracle) Validate(ctx context.Context, req ValidationRequest) (ValidationDecision, error) {
	prompt := fmt.Sprintf(
		"agent=%s risk_level=%d budget=%.2f balance=%.2f open_positions=%d/%d consecutive_losses=%d "+
			"win_rate=%.2f recent_pnl=%.2f drawdown=%.2f liquidity=%s spread=%.4f volatility=%.4f "+
			"signal_instrument=%s signal_direction=%s signal_confidence=%.2f entry=%.8f stop=%.8f target=%.8f rr=%.2f grade=%s",
		req.AgentID, req.AgentRiskLevel, req.Budget, req.AvailableBalance, req.OpenPositions, req.MaxOpenPositions,
		req.ConsecutiveLosses, req.RecentWinRate, req.RecentPnL, req.Drawdown, req.LiquidityBucket, req.Spread, req.Volatility,
		req.Signal.Instrument, req.Signal.Direction, req.Signal.Confidence, req.Signal.Entry, req.Signal.Stop,
		req.Signal.Target, req.Signal.RiskReward, req.Signal.Quality,
	)

	raw, err := o.client.CompleteWithSystem(ctx, validationSystemPrompt, prompt)
	if err != nil {
		return ValidationDecision{}, fmt.Errorf("validation oracle: %w", err)
	}

	var resp validationWireResponse
	if perr := o.client.ParseJSONResponse(raw, &resp); perr != nil {
		o.log.Warn().Err(perr).Msg("malformed validation response, conservative reject")
		return ValidationDecision{ShouldExecute: false, Reasoning: "malformed oracle response: " + raw}, nil
	}

	band := RiskBand(resp.RiskBand)
	switch band {
	case Safe, Moderate, Risky:
	default:
		band = Moderate
	}

	return ValidationDecision{
		ShouldExecute:    resp.ShouldExecute,
		RiskBand:         band,
		Reasoning:        resp.Reasoning,
		StopOverride:     resp.StopOverride,
		TargetOverride:   resp.TargetOverride,
		Confidence:       ClampConfidence(resp.Confidence),
		KeyRisks:         resp.KeyRisks,
		KeyOpportunities: resp.KeyOpportunities,
	}, nil
}
