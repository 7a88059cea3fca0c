package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/solarflux/pulsetrader/internal/queue"
)

// redisQueueKey is the Redis hash holding every not-yet-popped
// validated-signal delivery, field name signalId:agentId -> JSON-encoded
// wireItem.
const redisQueueKey = "pulsetrader:validated_signal_queue"

// wireItem is queue.Item with its Payload narrowed to the concrete
// ValidatedSignal type, so a round trip through JSON comes back as a real
// ValidatedSignal rather than a generic map (queue.Item.Payload is `any`,
// which Go's encoding/json cannot decode back into its original type
// without a concrete field to target).
type wireItem struct {
	Key      queue.Key
	Priority int
	Payload  ValidatedSignal
}

// RedisStore is a queue.Store backed by a Redis hash, so an executor
// restart recovers in-flight validated-signal deliveries instead of losing
// them. It lives in this package rather than internal/queue
// because it needs ValidatedSignal's concrete type to survive the JSON
// round trip; internal/queue only ever sees Payload as `any`.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func storeField(k queue.Key) string {
	return k.SignalID + ":" + k.AgentID
}

// Persist upserts item under its (signalId, agentId) field.
func (s *RedisStore) Persist(ctx context.Context, item queue.Item) error {
	vs, ok := item.Payload.(ValidatedSignal)
	if !ok {
		return fmt.Errorf("queue redis store: payload is not a ValidatedSignal")
	}
	raw, err := json.Marshal(wireItem{Key: item.Key, Priority: item.Priority, Payload: vs})
	if err != nil {
		return fmt.Errorf("queue redis store: marshal item: %w", err)
	}
	return s.client.HSet(ctx, redisQueueKey, storeField(item.Key), raw).Err()
}

// Remove deletes the field for key, a no-op if it is already gone.
func (s *RedisStore) Remove(ctx context.Context, key queue.Key) error {
	return s.client.HDel(ctx, redisQueueKey, storeField(key)).Err()
}

// LoadAll returns every item still pending in the hash, for Queue's startup
// rebuild of its in-memory heap. Corrupt entries are dropped rather than
// failing the whole rebuild.
func (s *RedisStore) LoadAll(ctx context.Context) ([]queue.Item, error) {
	raw, err := s.client.HGetAll(ctx, redisQueueKey).Result()
	if err != nil {
		return nil, fmt.Errorf("queue redis store: load pending items: %w", err)
	}
	items := make([]queue.Item, 0, len(raw))
	for _, v := range raw {
		var wi wireItem
		if err := json.Unmarshal([]byte(v), &wi); err != nil {
			continue
		}
		items = append(items, queue.Item{Key: wi.Key, Priority: wi.Priority, Payload: wi.Payload})
	}
	return items, nil
}
