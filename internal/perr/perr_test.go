package perr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := New(TransientExternal, "oracle call", cause)

	assert.Contains(t, err.Error(), "transient_external")
	assert.Contains(t, err.Error(), "oracle call")
	assert.Contains(t, err.Error(), "i/o timeout")

	bare := New(Stale, "htf cache expired", nil)
	assert.Equal(t, "stale: htf cache expired", bare.Error())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := New(BrokerRejected, "order refused", cause)

	assert.True(t, errors.Is(err, cause))
}

func TestKindOf(t *testing.T) {
	err := New(MalformedExternal, "bad json", nil)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, MalformedExternal, kind)

	// Wrapped one level deeper, Kind is still recoverable.
	wrapped := fmt.Errorf("validating agent a1: %w", err)
	kind, ok = KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, MalformedExternal, kind)

	// Plain errors have no kind.
	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)

	_, ok = KindOf(nil)
	assert.False(t, ok)
}
