package broadcast

import (
	"context"

	"github.com/solarflux/pulsetrader/internal/broker"
	"github.com/solarflux/pulsetrader/internal/catalog"
	"github.com/solarflux/pulsetrader/internal/composer"
)

// checkEligibility runs the cheap local checks that must pass before
// any validation call is attempted: active, category/allowed-categories,
// symbol admissibility, balance >= MinimumBalance, open positions < max,
// confidence >= agent's minimum. Returns ("", true) when eligible, or the
// ExclusionReason and false otherwise. Errors performing a check (broker
// down, admissibility lookup failing) exclude the agent rather than panic
// or block the rest of the population.
func checkEligibility(
	ctx context.Context,
	agent catalog.Agent,
	sig *composer.Signal,
	instrumentCategory string,
	cat catalog.Catalog,
	admissibility catalog.SymbolAdmissibilityLookup,
	brk broker.Broker,
) (ExclusionReason, bool) {
	if !agent.IsActive {
		return ExclusionInactive, false
	}
	if !agent.AllowsCategory(instrumentCategory) {
		return ExclusionCategoryMismatch, false
	}

	admis, err := admissibility.Lookup(ctx, sig.Instrument, agent.Broker, agent.Category)
	if err != nil || !admis.Allowed {
		return ExclusionSymbolInadmissible, false
	}

	bal, err := brk.GetBalance(ctx, agent.ID)
	if err != nil || bal.Available < MinimumBalance {
		return ExclusionInsufficientBalance, false
	}

	openCount, err := cat.OpenPositionCount(ctx, agent.ID)
	if err != nil {
		return ExclusionCheckFailed, false
	}
	if agent.MaxOpenPositions > 0 && openCount >= agent.MaxOpenPositions {
		return ExclusionMaxOpenPositions, false
	}

	if sig.Confidence < agent.MinConfidence {
		return ExclusionBelowMinConfidence, false
	}

	return "", true
}
