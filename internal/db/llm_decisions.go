package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/solarflux/pulsetrader/internal/llm"
)

// LLMDecision is one recorded gateway call: a pattern-oracle grading or a
// per-agent validation decision. Outcome and PnL are filled in later, once
// the resulting position (if any) closes, so the log doubles as a
// calibration data set for the oracles.
type LLMDecision struct {
	ID           uuid.UUID `json:"id"`
	DecisionType string    `json:"decision_type"` // 'oracle_grading', 'agent_validation'
	Symbol       string    `json:"symbol"`
	Prompt       string    `json:"prompt"`
	Response     string    `json:"response"`
	Model        string    `json:"model"`
	TokensUsed   int       `json:"tokens_used"`
	LatencyMs    int       `json:"latency_ms"`
	Outcome      *string   `json:"outcome,omitempty"` // 'SUCCESS', 'FAILURE', 'PENDING'
	PnL          *float64  `json:"pnl,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// InsertLLMDecision records an LLM decision in the database
func (db *DB) InsertLLMDecision(ctx context.Context, decision *LLMDecision) error {
	query := `
		INSERT INTO llm_decisions (
			id, decision_type, symbol, prompt, response, model,
			tokens_used, latency_ms, outcome, outcome_pnl, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)
	`

	_, err := db.pool.Exec(
		ctx,
		query,
		decision.ID,
		decision.DecisionType,
		decision.Symbol,
		decision.Prompt,
		decision.Response,
		decision.Model,
		decision.TokensUsed,
		decision.LatencyMs,
		decision.Outcome,
		decision.PnL,
		decision.CreatedAt,
	)

	return err
}

// UpdateLLMDecisionOutcome updates the outcome and P&L of a decision
func (db *DB) UpdateLLMDecisionOutcome(ctx context.Context, id uuid.UUID, outcome string, pnl float64) error {
	query := `
		UPDATE llm_decisions
		SET outcome = $2, outcome_pnl = $3
		WHERE id = $1
	`

	_, err := db.pool.Exec(ctx, query, id, outcome, pnl)
	return err
}

// GetLLMDecisions returns the most recent decisions of one type, newest first.
func (db *DB) GetLLMDecisions(ctx context.Context, decisionType string, limit int) ([]*LLMDecision, error) {
	query := `
		SELECT id, decision_type, symbol, prompt, response, model,
		       tokens_used, latency_ms, outcome, outcome_pnl, created_at
		FROM llm_decisions
		WHERE decision_type = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := db.pool.Query(ctx, query, decisionType, limit)
	if err != nil {
		return nil, fmt.Errorf("query llm decisions: %w", err)
	}
	defer rows.Close()

	return scanLLMDecisions(rows)
}

// GetLLMDecisionsBySymbol returns the most recent decisions for a symbol.
func (db *DB) GetLLMDecisionsBySymbol(ctx context.Context, symbol string, limit int) ([]*LLMDecision, error) {
	query := `
		SELECT id, decision_type, symbol, prompt, response, model,
		       tokens_used, latency_ms, outcome, outcome_pnl, created_at
		FROM llm_decisions
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := db.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query llm decisions by symbol: %w", err)
	}
	defer rows.Close()

	return scanLLMDecisions(rows)
}

// GetLLMDecisionStats aggregates decision counts, token spend, and outcome
// hit rate since a cutoff.
func (db *DB) GetLLMDecisionStats(ctx context.Context, decisionType string, since time.Time) (map[string]interface{}, error) {
	query := `
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(tokens_used), 0) as total_tokens,
			COALESCE(AVG(latency_ms), 0) as avg_latency_ms,
			COUNT(*) FILTER (WHERE outcome = 'SUCCESS') as successes,
			COUNT(*) FILTER (WHERE outcome = 'FAILURE') as failures
		FROM llm_decisions
		WHERE decision_type = $1 AND created_at >= $2
	`

	var total, totalTokens, successes, failures int64
	var avgLatency float64
	err := db.pool.QueryRow(ctx, query, decisionType, since).Scan(&total, &totalTokens, &avgLatency, &successes, &failures)
	if err != nil {
		return nil, fmt.Errorf("llm decision stats: %w", err)
	}

	stats := map[string]interface{}{
		"total":          total,
		"total_tokens":   totalTokens,
		"avg_latency_ms": avgLatency,
		"successes":      successes,
		"failures":       failures,
	}
	if successes+failures > 0 {
		stats["hit_rate"] = float64(successes) / float64(successes+failures)
	}
	return stats, nil
}

type llmDecisionRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanLLMDecisions(rows llmDecisionRows) ([]*LLMDecision, error) {
	var decisions []*LLMDecision
	for rows.Next() {
		d := &LLMDecision{}
		if err := rows.Scan(
			&d.ID, &d.DecisionType, &d.Symbol, &d.Prompt, &d.Response, &d.Model,
			&d.TokensUsed, &d.LatencyMs, &d.Outcome, &d.PnL, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan llm decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// LLMCallSink adapts the decision log to llm.CallSink so a
// llm.RecordingClient can persist every completion that flows through the
// oracle pool or the validation oracle.
type LLMCallSink struct {
	db           *DB
	decisionType string
	symbol       string
}

// NewLLMCallSink builds a sink that tags every record with decisionType and
// symbol.
func (db *DB) NewLLMCallSink(decisionType, symbol string) *LLMCallSink {
	return &LLMCallSink{db: db, decisionType: decisionType, symbol: symbol}
}

// RecordCall persists one call record. Failures are logged, never propagated;
// the trading path must not stall on the decision log.
func (s *LLMCallSink) RecordCall(ctx context.Context, rec llm.CallRecord) {
	pending := "PENDING"
	d := &LLMDecision{
		ID:           uuid.New(),
		DecisionType: s.decisionType,
		Symbol:       s.symbol,
		Prompt:       rec.Prompt,
		Response:     rec.Response,
		Model:        rec.Model,
		TokensUsed:   rec.TokensUsed,
		LatencyMs:    rec.LatencyMs,
		Outcome:      &pending,
		CreatedAt:    rec.Timestamp,
	}
	if err := s.db.InsertLLMDecision(ctx, d); err != nil {
		log.Warn().Err(err).Str("decision_type", s.decisionType).Msg("failed to record llm decision")
	}
}

var _ llm.CallSink = (*LLMCallSink)(nil)
