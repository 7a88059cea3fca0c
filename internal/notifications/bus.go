// Package notifications is the fire-and-forget notification bus: signal
// broadcast completions, per-agent validations, and position lifecycle
// events published over NATS.
package notifications

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/solarflux/pulsetrader/internal/metrics"
)

// Topic names.
const (
	TopicBroadcastComplete = "signal.broadcast.complete"
	TopicAgentValidated    = "signal.agent.validated"
	TopicPositionOpened    = "position.opened"
	TopicPositionClosed    = "position.closed"
)

// Bus publishes notifications; failures are logged, never propagated.
type Bus struct {
	nc  *nats.Conn
	log zerolog.Logger
}

// New wraps an existing NATS connection.
func New(nc *nats.Conn, log zerolog.Logger) *Bus {
	return &Bus{nc: nc, log: log.With().Str("component", "notifications").Logger()}
}

// Publish marshals payload as JSON and publishes it to topic, logging (not
// returning) any failure.
func (b *Bus) Publish(topic string, payload any) {
	if b == nil || b.nc == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		b.log.Error().Err(err).Str("topic", topic).Msg("failed to marshal notification")
		return
	}
	if err := b.nc.Publish(topic, data); err != nil {
		b.log.Error().Err(err).Str("topic", topic).Msg("failed to publish notification")
		return
	}
	metrics.NATSMessagesPublished.Inc()
}
