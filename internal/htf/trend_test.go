package htf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrendStateFirstTransitionOutOfNeutralIsImmediate(t *testing.T) {
	s := newTrendState()
	require.Equal(t, Neutral, s.label)

	now := time.Now()
	s.advance(Bullish, now)
	require.Equal(t, Bullish, s.label)
	require.Equal(t, now, s.confirmedAt)
}

func TestTrendStateRequiresTwoConfirmationsBetweenDirectionalLabels(t *testing.T) {
	s := newTrendState()
	base := time.Now()
	s.advance(Bullish, base) // NEUTRAL -> BULLISH immediate
	require.Equal(t, Bullish, s.label)

	// Past the one-hour lock so BEARISH candidates are actually considered.
	t1 := base.Add(2 * time.Hour)
	s.advance(Bearish, t1)
	require.Equal(t, Bullish, s.label, "single bearish candidate must not flip a directional trend")
	require.Equal(t, 1, s.pendingConfirmations)

	t2 := t1.Add(time.Minute)
	s.advance(Bearish, t2)
	require.Equal(t, Bearish, s.label, "second consecutive confirmation promotes")
	require.Equal(t, t2, s.confirmedAt)
}

func TestTrendStateLockedForOneHourAfterPromotion(t *testing.T) {
	s := newTrendState()
	base := time.Now()
	s.advance(Bullish, base)

	// Within the lock window, even a differing candidate is ignored entirely.
	s.advance(Bearish, base.Add(30*time.Minute))
	require.Equal(t, Bullish, s.label)
	require.Equal(t, 0, s.pendingConfirmations, "candidate must not even start accumulating confirmations while locked")
}

func TestCandidateFrom4hRequiresFiveCloses(t *testing.T) {
	_, ok := candidateFrom4h(nil)
	require.False(t, ok)
}
