package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Catalog is the agent-population read interface ("read-mostly").
type Catalog interface {
	// List returns every agent currently known to the catalog. Used by
	// Broadcast to snapshot the population once per composed signal.
	List(ctx context.Context) ([]Agent, error)

	// Get looks up a single agent by id.
	Get(ctx context.Context, id string) (Agent, bool, error)

	// OpenPositionCount returns how many positions agentID currently has open.
	OpenPositionCount(ctx context.Context, agentID string) (int, error)
}

// PostgresCatalog is the Catalog backed by the agents/positions tables,
// grounded on internal/db's pgxpool query style (db/agents.go, db/positions.go).
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog wraps an existing pgx pool.
func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

func (c *PostgresCatalog) List(ctx context.Context) ([]Agent, error) {
	const query = `
		SELECT id, is_active, category, risk_level, budget, allowed_categories,
		       min_confidence, max_open_positions, enable_expensive_validation, broker
		FROM trading_agents
		ORDER BY id ASC
	`
	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list agents: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(
			&a.ID, &a.IsActive, &a.Category, &a.RiskLevel, &a.Budget, &a.AllowedCategories,
			&a.MinConfidence, &a.MaxOpenPositions, &a.EnableExpensiveValidation, &a.Broker,
		); err != nil {
			return nil, fmt.Errorf("catalog: scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (c *PostgresCatalog) Get(ctx context.Context, id string) (Agent, bool, error) {
	const query = `
		SELECT id, is_active, category, risk_level, budget, allowed_categories,
		       min_confidence, max_open_positions, enable_expensive_validation, broker
		FROM trading_agents
		WHERE id = $1
	`
	var a Agent
	err := c.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.IsActive, &a.Category, &a.RiskLevel, &a.Budget, &a.AllowedCategories,
		&a.MinConfidence, &a.MaxOpenPositions, &a.EnableExpensiveValidation, &a.Broker,
	)
	if err != nil {
		return Agent{}, false, nil
	}
	return a, true, nil
}

func (c *PostgresCatalog) OpenPositionCount(ctx context.Context, agentID string) (int, error) {
	const query = `SELECT count(*) FROM open_positions WHERE agent_id = $1`
	var n int
	if err := c.pool.QueryRow(ctx, query, agentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: open position count for %s: %w", agentID, err)
	}
	return n, nil
}
