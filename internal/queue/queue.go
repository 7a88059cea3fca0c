// Package queue implements the validated-signal queue: items keyed by
// (signalId, agentId), popped in priority order (ties broken by arrival
// order), with at-least-once delivery expected by idempotent consumers.
package queue

import (
	"container/heap"
	"context"
	"fmt"
	"sync"

	"github.com/solarflux/pulsetrader/internal/metrics"
)

// Key uniquely identifies one validated-signal queue entry.
type Key struct {
	SignalID string
	AgentID  string
}

// Item is one queue entry. Priority is higher-means-earlier (broadcast sets
// it to round(confidence*100)). Payload carries the
// broadcast component's per-agent validated signal as an opaque value so
// this package has no dependency on internal/broadcast.
type Item struct {
	Key      Key
	Priority int
	Payload  any

	seq int64 // arrival order, assigned internally
}

// Store is the persistence boundary a Queue can optionally be backed by
// (e.g. internal/db), so a validated-signal survives an executor restart
// and re-consuming it after restart is an idempotent no-op.
type Store interface {
	Persist(ctx context.Context, item Item) error
	Remove(ctx context.Context, key Key) error
	LoadAll(ctx context.Context) ([]Item, error)
}

type itemHeap []Item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority // higher priority first
	}
	return h[i].seq < h[j].seq // earlier arrival first on ties
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)   { *h = append(*h, x.(Item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is a multi-producer/multi-consumer priority queue.
type Queue struct {
	mu    sync.Mutex
	h     itemHeap
	seen  map[Key]struct{}
	seq   int64
	store Store
}

// New builds an empty Queue, optionally backed by store (pass nil for a
// purely in-process queue). If store is non-nil, New reloads any items
// persisted by a prior process (executor-restart recovery).
func New(ctx context.Context, store Store) (*Queue, error) {
	q := &Queue{seen: make(map[Key]struct{}), store: store}
	if store == nil {
		return q, nil
	}
	items, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue: load persisted items: %w", err)
	}
	for _, it := range items {
		q.pushLocked(it)
	}
	return q, nil
}

// Push enqueues item. Pushing a duplicate Key is a no-op: entries are
// unique by (signalId, agentId).
func (q *Queue) Push(ctx context.Context, item Item) error {
	q.mu.Lock()
	if _, dup := q.seen[item.Key]; dup {
		q.mu.Unlock()
		return nil
	}
	q.pushLocked(item)
	depth := q.h.Len()
	q.mu.Unlock()
	metrics.UpdateQueueDepth(depth)

	if q.store != nil {
		return q.store.Persist(ctx, item)
	}
	return nil
}

func (q *Queue) pushLocked(item Item) {
	item.seq = q.seq
	q.seq++
	q.seen[item.Key] = struct{}{}
	heap.Push(&q.h, item)
}

// Pop removes and returns the highest-priority item, or ok=false if empty.
// The returned item is also removed from the backing store, if any.
func (q *Queue) Pop(ctx context.Context) (Item, bool) {
	q.mu.Lock()
	if q.h.Len() == 0 {
		q.mu.Unlock()
		return Item{}, false
	}
	item := heap.Pop(&q.h).(Item)
	delete(q.seen, item.Key)
	depth := q.h.Len()
	q.mu.Unlock()
	metrics.UpdateQueueDepth(depth)

	if q.store != nil {
		_ = q.store.Remove(ctx, item.Key)
	}
	return item, true
}

// Len reports the number of items currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}

// Contains reports whether key is currently queued (used by idempotent
// consumers to detect a duplicate delivery before acting on it).
func (q *Queue) Contains(key Key) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.seen[key]
	return ok
}
