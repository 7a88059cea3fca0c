package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthroughAdmissibility(t *testing.T) {
	lookup := NewPassthroughAdmissibility([]string{"binance"}, []string{"BTC/USDT", "ETHUSDT"})
	ctx := context.Background()

	res, err := lookup.Lookup(ctx, "BTC/USDT", "binance", "spot")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, "BTCUSDT", res.BrokerSymbol)

	res, err = lookup.Lookup(ctx, "ETHUSDT", "binance", "")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// Unknown broker and unknown symbol are rejections, not errors.
	res, err = lookup.Lookup(ctx, "BTC/USDT", "kraken", "spot")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = lookup.Lookup(ctx, "DOGE/USDT", "binance", "spot")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestStaticAdmissibilityCategoryConstraint(t *testing.T) {
	lookup := NewStaticAdmissibility(map[string]BrokerRule{
		"scalp-broker": {
			Symbols: map[string]string{
				"BTC/USDT": "BTCUSDT",
				"ETH/USDT": "ETHUSDT",
			},
			// Scalping agents may only trade BTC on this venue.
			CategorySymbols: map[string][]string{
				"scalping": {"BTC/USDT"},
			},
		},
	})
	ctx := context.Background()

	res, err := lookup.Lookup(ctx, "BTC/USDT", "scalp-broker", "scalping")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = lookup.Lookup(ctx, "ETH/USDT", "scalp-broker", "scalping")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// Other categories fall back to the unconstrained symbol set.
	res, err = lookup.Lookup(ctx, "ETH/USDT", "scalp-broker", "swing")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

type countingLookup struct {
	calls int
}

func (c *countingLookup) Lookup(ctx context.Context, symbol, broker, category string) (AdmissibilityResult, error) {
	c.calls++
	return AdmissibilityResult{Allowed: true, BrokerSymbol: symbol}, nil
}

func TestCachedAdmissibilityHitsBackingOnce(t *testing.T) {
	backing := &countingLookup{}
	cached := NewCachedAdmissibility(backing)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := cached.Lookup(ctx, "BTCUSDT", "binance", "spot")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	assert.Equal(t, 1, backing.calls)

	// A different key goes back to the backing lookup.
	_, err := cached.Lookup(ctx, "ETHUSDT", "binance", "spot")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.calls)
}
