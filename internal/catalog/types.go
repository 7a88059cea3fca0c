// Package catalog owns the trading-agent population: their static
// configuration (budget, risk appetite, broker) and the eligibility/symbol
// admissibility checks the broadcast component runs before validating a
// signal against any one agent.
package catalog

// Agent is the catalog's view of one trading agent; the pipeline only reads
// this state ("Agent state is owned by the catalog").
type Agent struct {
	ID                      string
	IsActive                bool
	Category                string
	RiskLevel               int // 1..5
	Budget                  float64
	AllowedCategories       []string // empty means unconstrained
	MinConfidence           float64
	MaxOpenPositions        int
	EnableExpensiveValidation bool
	Broker                  string
}

// AllowsCategory reports whether the agent's allowed-categories constraint
// (if any) admits instrumentCategory.
func (a Agent) AllowsCategory(instrumentCategory string) bool {
	if len(a.AllowedCategories) == 0 {
		return true
	}
	for _, c := range a.AllowedCategories {
		if c == instrumentCategory {
			return true
		}
	}
	return false
}
