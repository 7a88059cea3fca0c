package catalog

import (
	"context"
	"strings"
)

// BrokerRule describes which symbols one broker admits, with an optional
// per-category restriction (a scalping-only venue may admit only BTC, for
// example).
type BrokerRule struct {
	// Symbols maps the universal symbol to the broker's own symbol form.
	Symbols map[string]string

	// CategorySymbols optionally narrows admission per agent category.
	// A category absent from the map falls back to Symbols.
	CategorySymbols map[string][]string
}

// StaticAdmissibility is a deterministic, config-driven admissibility
// lookup: one rule per broker.
type StaticAdmissibility struct {
	rules map[string]BrokerRule
}

// NewStaticAdmissibility builds the lookup from per-broker rules.
func NewStaticAdmissibility(rules map[string]BrokerRule) *StaticAdmissibility {
	return &StaticAdmissibility{rules: rules}
}

// NewPassthroughAdmissibility admits symbols on every broker, mapping each
// universal symbol to itself. Used when no per-broker rules are configured.
func NewPassthroughAdmissibility(brokers []string, symbols []string) *StaticAdmissibility {
	symbolMap := make(map[string]string, len(symbols))
	for _, s := range symbols {
		symbolMap[s] = strings.ReplaceAll(s, "/", "")
	}
	rules := make(map[string]BrokerRule, len(brokers))
	for _, b := range brokers {
		rules[b] = BrokerRule{Symbols: symbolMap}
	}
	return &StaticAdmissibility{rules: rules}
}

func (s *StaticAdmissibility) Lookup(ctx context.Context, universalSymbol, broker, agentCategory string) (AdmissibilityResult, error) {
	rule, ok := s.rules[broker]
	if !ok {
		return AdmissibilityResult{Allowed: false}, nil
	}

	brokerSymbol, ok := rule.Symbols[universalSymbol]
	if !ok {
		return AdmissibilityResult{Allowed: false}, nil
	}

	if agentCategory != "" && rule.CategorySymbols != nil {
		if allowed, constrained := rule.CategorySymbols[agentCategory]; constrained {
			found := false
			for _, sym := range allowed {
				if sym == universalSymbol {
					found = true
					break
				}
			}
			if !found {
				return AdmissibilityResult{Allowed: false}, nil
			}
		}
	}

	return AdmissibilityResult{Allowed: true, BrokerSymbol: brokerSymbol}, nil
}

var _ SymbolAdmissibilityLookup = (*StaticAdmissibility)(nil)
