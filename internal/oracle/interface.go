package oracle

import "context"

// Grader is the narrow, kind-discriminated interface every pattern oracle
// satisfies. Oracles are "polymorphic over the capability
// set {analyze}" and must never reach into one another's result variants.
type Grader interface {
	Kind() Kind
	Analyze(ctx context.Context, in Input) (Verdict, error)
}

// ValidationOracle is the per-agent validation black box. The
// pipeline commits only to this input/output schema; the oracle's internal
// prompting/model is out of scope.
type ValidationOracle interface {
	Validate(ctx context.Context, req ValidationRequest) (ValidationDecision, error)
}
