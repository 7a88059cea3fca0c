package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListPositions returns positions with optional filters
func (db *DB) ListPositions(ctx context.Context, sessionID *uuid.UUID, symbol *string, openOnly bool, limit int, offset int) ([]*Position, error) {
	query := `
		SELECT
			id, session_id, symbol, exchange, side, entry_price, exit_price,
			quantity, entry_time, exit_time, stop_loss, take_profit,
			realized_pnl, unrealized_pnl, fees, entry_reason, exit_reason,
			metadata, created_at, updated_at
		FROM positions
		WHERE 1=1
	`

	args := []interface{}{}
	argCount := 1

	if sessionID != nil {
		query += fmt.Sprintf(" AND session_id = $%d", argCount)
		args = append(args, sessionID)
		argCount++
	}

	if symbol != nil {
		query += fmt.Sprintf(" AND symbol = $%d", argCount)
		args = append(args, *symbol)
		argCount++
	}

	if openOnly {
		query += " AND exit_time IS NULL"
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, limit)
		argCount++
	}

	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, offset)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []*Position
	for rows.Next() {
		pos := &Position{}
		err := rows.Scan(
			&pos.ID,
			&pos.SessionID,
			&pos.Symbol,
			&pos.Exchange,
			&pos.Side,
			&pos.EntryPrice,
			&pos.ExitPrice,
			&pos.Quantity,
			&pos.EntryTime,
			&pos.ExitTime,
			&pos.StopLoss,
			&pos.TakeProfit,
			&pos.RealizedPnL,
			&pos.UnrealizedPnL,
			&pos.Fees,
			&pos.EntryReason,
			&pos.ExitReason,
			&pos.Metadata,
			&pos.CreatedAt,
			&pos.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// GetPositionBySymbol returns an open position for a specific symbol and session
func (db *DB) GetPositionBySymbol(ctx context.Context, sessionID uuid.UUID, symbol string) (*Position, error) {
	positions, err := db.ListPositions(ctx, &sessionID, &symbol, true, 1, 0)
	if err != nil {
		return nil, err
	}

	if len(positions) == 0 {
		return nil, fmt.Errorf("no open position found for symbol %s", symbol)
	}

	return positions[0], nil
}

// CountPositions returns the total count of positions matching the criteria
func (db *DB) CountPositions(ctx context.Context, sessionID *uuid.UUID, openOnly bool) (int, error) {
	query := "SELECT COUNT(*) FROM positions WHERE 1=1"

	args := []interface{}{}
	argCount := 1

	if sessionID != nil {
		query += fmt.Sprintf(" AND session_id = $%d", argCount)
		args = append(args, sessionID)
		argCount++
	}

	if openOnly {
		query += " AND exit_time IS NULL"
	}

	var count int
	err := db.pool.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count positions: %w", err)
	}

	return count, nil
}

// GetPositionBySignalAgent looks up a position previously recorded for the
// (signalID, agentID) pair, regardless of open/closed state, so the executor
// can detect a duplicate delivery of an already-processed validated-signal
// queue entry ("re-consuming the same queue entry after executor
// restart does not create a second order"). Positions carry the originating
// signal id in metadata->>'signal_id' (set by the executor at creation).
func (db *DB) GetPositionBySignalAgent(ctx context.Context, signalID, agentID string) (*Position, bool, error) {
	query := `
		SELECT
			id, session_id, agent_id, broker_ticket, symbol, exchange, side, entry_price, exit_price,
			quantity, entry_time, exit_time, stop_loss, take_profit,
			realized_pnl, unrealized_pnl, fees, entry_reason, exit_reason,
			metadata, created_at, updated_at
		FROM positions
		WHERE agent_id = $1 AND metadata->>'signal_id' = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var position Position
	err := db.pool.QueryRow(ctx, query, agentID, signalID).Scan(
		&position.ID,
		&position.SessionID,
		&position.AgentID,
		&position.BrokerTicket,
		&position.Symbol,
		&position.Exchange,
		&position.Side,
		&position.EntryPrice,
		&position.ExitPrice,
		&position.Quantity,
		&position.EntryTime,
		&position.ExitTime,
		&position.StopLoss,
		&position.TakeProfit,
		&position.RealizedPnL,
		&position.UnrealizedPnL,
		&position.Fees,
		&position.EntryReason,
		&position.ExitReason,
		&position.Metadata,
		&position.CreatedAt,
		&position.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to look up position by signal/agent: %w", err)
	}
	return &position, true, nil
}
