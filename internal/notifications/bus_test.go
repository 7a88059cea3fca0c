package notifications

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server for testing
func startTestNATSServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host: "127.0.0.1",
		Port: -1, // Random port
	}

	ns, err := server.NewServer(opts)
	require.NoError(t, err)

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(ns.Shutdown)
	return ns
}

func TestBusPublish(t *testing.T) {
	ns := startTestNATSServer(t)

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	received := make(chan []byte, 1)
	sub, err := nc.Subscribe(TopicAgentValidated, func(msg *nats.Msg) {
		received <- msg.Data
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	bus := New(nc, zerolog.Nop())
	bus.Publish(TopicAgentValidated, map[string]any{
		"signal_id": "sig-1",
		"agent_id":  "agent-1",
		"risk_band": "MODERATE",
	})

	select {
	case data := <-received:
		var payload map[string]any
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, "sig-1", payload["signal_id"])
		assert.Equal(t, "agent-1", payload["agent_id"])
		assert.Equal(t, "MODERATE", payload["risk_band"])
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestBusPublishUnmarshalableIsLoggedNotFatal(t *testing.T) {
	ns := startTestNATSServer(t)

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	bus := New(nc, zerolog.Nop())

	// Channels can't be marshaled; Publish must swallow the failure.
	assert.NotPanics(t, func() {
		bus.Publish(TopicPositionOpened, map[string]any{"ch": make(chan int)})
	})
}

func TestBusNilConnectionIsNoop(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() {
		bus.Publish(TopicBroadcastComplete, map[string]any{"x": 1})
	})

	empty := New(nil, zerolog.Nop())
	assert.NotPanics(t, func() {
		empty.Publish(TopicPositionClosed, map[string]any{"x": 1})
	})
}
