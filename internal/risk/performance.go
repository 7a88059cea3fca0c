package risk

import (
	"context"
	"fmt"
)

// PerformanceSnapshot bundles an agent's recent performance: consecutive
// losses, recent win rate,
// recent PnL, and drawdown, read from the agent's own closed-position
// history. internal/broadcast consults this when assembling full-mode
// validation context.
type PerformanceSnapshot struct {
	ConsecutiveLosses int
	RecentWinRate     float64
	RecentPnL         float64
	Drawdown          float64
}

// PerformanceSnapshot computes the snapshot for one agent over its last
// `days` of closed positions, adapting CalculateWinRate/CalculateDrawdownFromDB's
// query shape (symbol-scoped there) to an agent_id scope.
func (c *Calculator) PerformanceSnapshot(ctx context.Context, agentID string, days int) (PerformanceSnapshot, error) {
	if c.pool == nil {
		return PerformanceSnapshot{RecentWinRate: 0.55}, nil
	}

	const winRateQuery = `
		SELECT
			COUNT(*) FILTER (WHERE realized_pnl > 0) AS winning_trades,
			COUNT(*) AS total_trades,
			COALESCE(SUM(realized_pnl), 0) AS total_pnl
		FROM positions
		WHERE agent_id = $1
			AND exit_time IS NOT NULL
			AND realized_pnl IS NOT NULL
			AND exit_time >= now() - make_interval(days => $2)
	`
	var winning, total int64
	var totalPnL float64
	if err := c.pool.QueryRow(ctx, winRateQuery, agentID, days).Scan(&winning, &total, &totalPnL); err != nil {
		return PerformanceSnapshot{}, fmt.Errorf("performance snapshot: win rate for %s: %w", agentID, err)
	}

	winRate := 0.0
	if total > 0 {
		winRate = float64(winning) / float64(total)
	}

	streak, err := c.consecutiveLosses(ctx, agentID)
	if err != nil {
		return PerformanceSnapshot{}, err
	}

	_, maxDD, _, err := c.CalculateDrawdownFromDB(ctx, &agentID, days)
	if err != nil {
		return PerformanceSnapshot{}, fmt.Errorf("performance snapshot: drawdown for %s: %w", agentID, err)
	}

	return PerformanceSnapshot{
		ConsecutiveLosses: streak,
		RecentWinRate:     winRate,
		RecentPnL:         totalPnL,
		Drawdown:          maxDD,
	}, nil
}

// consecutiveLosses counts the agent's most recent losing trades in a row,
// most recent first.
func (c *Calculator) consecutiveLosses(ctx context.Context, agentID string) (int, error) {
	const query = `
		SELECT realized_pnl
		FROM positions
		WHERE agent_id = $1 AND exit_time IS NOT NULL AND realized_pnl IS NOT NULL
		ORDER BY exit_time DESC
		LIMIT 50
	`
	rows, err := c.pool.Query(ctx, query, agentID)
	if err != nil {
		return 0, fmt.Errorf("consecutive losses for %s: %w", agentID, err)
	}
	defer rows.Close()

	streak := 0
	for rows.Next() {
		var pnl float64
		if err := rows.Scan(&pnl); err != nil {
			return 0, err
		}
		if pnl >= 0 {
			break
		}
		streak++
	}
	return streak, rows.Err()
}
