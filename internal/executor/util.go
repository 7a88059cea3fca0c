package executor

import (
	"github.com/google/uuid"

	"github.com/solarflux/pulsetrader/internal/db"
	"github.com/solarflux/pulsetrader/internal/exchange"
)

// parseUUID wraps uuid.Parse so callers get a consistent error message when a
// trade id didn't originate from a database row (e.g. an in-memory test
// fixture).
func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// dbSideToOrderSide projects a persisted position side back onto the
// exchange order-side space used by exit-vote comparisons.
func dbSideToOrderSide(side db.PositionSide) exchange.OrderSide {
	if side == db.PositionSideShort {
		return exchange.OrderSideSell
	}
	return exchange.OrderSideBuy
}
