package db

import (
	"context"
	"time"
)

// TradingAgent is the persisted form of one catalog agent. The catalog
// reads this table directly; this side only handles seeding and the
// occasional activation toggle.
type TradingAgent struct {
	ID                        string    `db:"id" json:"id"`
	Name                      string    `db:"name" json:"name"`
	IsActive                  bool      `db:"is_active" json:"is_active"`
	Category                  string    `db:"category" json:"category"`
	RiskLevel                 int       `db:"risk_level" json:"risk_level"`
	Budget                    float64   `db:"budget" json:"budget"`
	AllowedCategories         []string  `db:"allowed_categories" json:"allowed_categories,omitempty"`
	MinConfidence             float64   `db:"min_confidence" json:"min_confidence"`
	MaxOpenPositions          int       `db:"max_open_positions" json:"max_open_positions"`
	EnableExpensiveValidation bool      `db:"enable_expensive_validation" json:"enable_expensive_validation"`
	Broker                    string    `db:"broker" json:"broker"`
	CreatedAt                 time.Time `db:"created_at" json:"created_at"`
	UpdatedAt                 time.Time `db:"updated_at" json:"updated_at"`
}

// GetTradingAgent retrieves a specific trading agent
func (db *DB) GetTradingAgent(ctx context.Context, id string) (*TradingAgent, error) {
	query := `
		SELECT id, name, is_active, category, risk_level, budget, allowed_categories,
		       min_confidence, max_open_positions, enable_expensive_validation, broker,
		       created_at, updated_at
		FROM trading_agents
		WHERE id = $1
	`

	var agent TradingAgent
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&agent.ID,
		&agent.Name,
		&agent.IsActive,
		&agent.Category,
		&agent.RiskLevel,
		&agent.Budget,
		&agent.AllowedCategories,
		&agent.MinConfidence,
		&agent.MaxOpenPositions,
		&agent.EnableExpensiveValidation,
		&agent.Broker,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &agent, nil
}

// GetAllTradingAgents retrieves the whole agent population
func (db *DB) GetAllTradingAgents(ctx context.Context) ([]*TradingAgent, error) {
	query := `
		SELECT id, name, is_active, category, risk_level, budget, allowed_categories,
		       min_confidence, max_open_positions, enable_expensive_validation, broker,
		       created_at, updated_at
		FROM trading_agents
		ORDER BY id ASC
	`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []*TradingAgent
	for rows.Next() {
		var agent TradingAgent
		err := rows.Scan(
			&agent.ID,
			&agent.Name,
			&agent.IsActive,
			&agent.Category,
			&agent.RiskLevel,
			&agent.Budget,
			&agent.AllowedCategories,
			&agent.MinConfidence,
			&agent.MaxOpenPositions,
			&agent.EnableExpensiveValidation,
			&agent.Broker,
			&agent.CreatedAt,
			&agent.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		agents = append(agents, &agent)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return agents, nil
}

// UpsertTradingAgent inserts or updates a trading agent. Seeding from the
// agents config file runs through here on startup; an existing row keeps
// its activation flag so an operator's manual disable survives restarts.
func (db *DB) UpsertTradingAgent(ctx context.Context, agent *TradingAgent) error {
	query := `
		INSERT INTO trading_agents (
			id, name, is_active, category, risk_level, budget, allowed_categories,
			min_confidence, max_open_positions, enable_expensive_validation, broker
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			risk_level = EXCLUDED.risk_level,
			budget = EXCLUDED.budget,
			allowed_categories = EXCLUDED.allowed_categories,
			min_confidence = EXCLUDED.min_confidence,
			max_open_positions = EXCLUDED.max_open_positions,
			enable_expensive_validation = EXCLUDED.enable_expensive_validation,
			broker = EXCLUDED.broker,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := db.pool.QueryRow(ctx, query,
		agent.ID,
		agent.Name,
		agent.IsActive,
		agent.Category,
		agent.RiskLevel,
		agent.Budget,
		agent.AllowedCategories,
		agent.MinConfidence,
		agent.MaxOpenPositions,
		agent.EnableExpensiveValidation,
		agent.Broker,
	).Scan(&agent.CreatedAt, &agent.UpdatedAt)

	return err
}

// SetTradingAgentActive toggles an agent's activation flag.
func (db *DB) SetTradingAgentActive(ctx context.Context, id string, active bool) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE trading_agents SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	return err
}
