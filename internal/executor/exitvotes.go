package executor

import (
	"github.com/solarflux/pulsetrader/internal/exchange"
	"github.com/solarflux/pulsetrader/internal/oracle"
)

// sideDirection projects a broker order side onto the oracle recommendation
// space so exit votes can compare "is the position still favored" against
// the live oracle pool.
func sideDirection(side exchange.OrderSide) oracle.Recommendation {
	if side == exchange.OrderSideSell {
		return oracle.Sell
	}
	return oracle.Buy
}

func opposite(r oracle.Recommendation) oracle.Recommendation {
	switch r {
	case oracle.Buy:
		return oracle.Sell
	case oracle.Sell:
		return oracle.Buy
	default:
		return oracle.Hold
	}
}

// fibonacciExitVote fires when the current Fibonacci level label differs
// from the one observed at entry.
func fibonacciExitVote(entry, current oracle.Verdict) ExitVote {
	vote := ExitVote{Kind: oracle.KindFibonacci}
	ef, eok := entry.TypedFields.(oracle.FibonacciFields)
	cf, cok := current.TypedFields.(oracle.FibonacciFields)
	if eok && cok {
		vote.Fire = ef.CurrentLevel != cf.CurrentLevel
	}
	return vote
}

// trendMomentumExitVote fires when the EMA-derived trend has flipped
// relative to entry, or momentum has downgraded STRONG to WEAK.
func trendMomentumExitVote(entry, current oracle.Verdict) ExitVote {
	vote := ExitVote{Kind: oracle.KindTrendMomentum}
	ef, eok := entry.TypedFields.(oracle.TrendMomentumFields)
	cf, cok := current.TypedFields.(oracle.TrendMomentumFields)
	if eok && cok {
		flipped := ef.EMATrend != "" && cf.EMATrend != "" && ef.EMATrend != cf.EMATrend
		downgraded := ef.Momentum == "STRONG" && cf.Momentum == "WEAK"
		vote.Fire = flipped || downgraded
	}
	return vote
}

// volumePriceActionExitVote fires when a strong reversal candle opposite the
// position is present and the position is currently in profit.
func volumePriceActionExitVote(current oracle.Verdict, inProfit bool) ExitVote {
	vote := ExitVote{Kind: oracle.KindVolumePriceAction}
	cf, ok := current.TypedFields.(oracle.VolumePriceActionFields)
	if ok {
		vote.Fire = cf.ReversalCandle && inProfit
	}
	return vote
}

// srExitVote fires when price has crossed the relevant S/R boundary: BUY
// positions exit on a close below nearest support, SELL symmetric above
// nearest resistance.
func srExitVote(current oracle.Verdict) ExitVote {
	vote := ExitVote{Kind: oracle.KindSupportResistance}
	cf, ok := current.TypedFields.(oracle.SupportResistanceFields)
	if ok {
		vote.Fire = cf.Crossed
	}
	return vote
}

// ExitVotes runs the four exit-vote contracts for pos against the monitor's
// fresh re-analysis of the primary timeframe.
func ExitVotes(pos *OpenPosition, analysis oracle.TimeframeAnalysis, inProfit bool) [4]ExitVote {
	var votes [4]ExitVote
	for i, v := range analysis.Verdicts {
		switch v.Kind {
		case oracle.KindFibonacci:
			votes[i] = fibonacciExitVote(pos.EntryVerdicts[i], v)
		case oracle.KindTrendMomentum:
			votes[i] = trendMomentumExitVote(pos.EntryVerdicts[i], v)
		case oracle.KindVolumePriceAction:
			votes[i] = volumePriceActionExitVote(v, inProfit)
		case oracle.KindSupportResistance:
			votes[i] = srExitVote(v)
		}
	}
	return votes
}

func countFires(votes [4]ExitVote) int {
	n := 0
	for _, v := range votes {
		if v.Fire {
			n++
		}
	}
	return n
}

// reversalDetected reports whether the current analysis's consensus
// direction is opposite the position's entry direction with at least 3/4
// votes ("full exit if the current analysis's consensus
// direction is opposite the entry (reversal detected, 3/4 or more)").
func reversalDetected(pos *OpenPosition, analysis oracle.TimeframeAnalysis) bool {
	want := opposite(sideDirection(pos.Side))
	if analysis.Direction != want {
		return false
	}
	switch pos.Side {
	case exchange.OrderSideBuy:
		return analysis.VotesAgainst >= 3
	default:
		return analysis.VotesFor >= 3
	}
}

// pnlFraction returns realized PnL as a fraction of the position's original
// target distance (targetR), signed so a favorable move is positive.
func pnlFraction(pos *OpenPosition, currentPrice float64) float64 {
	if pos.targetR <= 0 {
		return 0
	}
	move := currentPrice - pos.EntryPrice
	if pos.Side == exchange.OrderSideSell {
		move = -move
	}
	return move / pos.targetR
}

// AggregateExit applies the exit-vote aggregation rule: full exit
// on reversal or >=3/4 votes; partial exit (default 50%) when PnL has
// reached 0.618*targetR and >=2/4 votes fire; otherwise hold.
func AggregateExit(pos *OpenPosition, analysis oracle.TimeframeAnalysis, currentPrice float64) (ExitDecision, [4]ExitVote) {
	inProfit := pnlFraction(pos, currentPrice) > 0
	votes := ExitVotes(pos, analysis, inProfit)
	fires := countFires(votes)

	if reversalDetected(pos, analysis) || fires >= 3 {
		return ExitFull, votes
	}
	if pnlFraction(pos, currentPrice) >= partialExitPnLFraction && fires >= 2 {
		return ExitPartial, votes
	}
	return ExitHold, votes
}
