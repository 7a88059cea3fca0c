package candle

import (
	"sort"
	"sync"
)

// Window is the ordered, gap-checked sequence of candles for one
// (instrument, timeframe). Writes happen on the ingestor goroutine only;
// reads happen under the shared lock from any goroutine (writer-exclusive /
// reader-shared).
type Window struct {
	mu        sync.RWMutex
	retention int
	candles   []Candle
}

// NewWindow creates a window bounded to retention candles (clamped to
// [50,100], callers should pass a value in that range).
func NewWindow(retention int) *Window {
	if retention < 1 {
		retention = 100
	}
	return &Window{retention: retention}
}

// Seed replaces the window contents with a backfilled, sorted, deduplicated
// slice. Used at startup and on reconnect-reconciliation.
func (w *Window) Seed(candles []Candle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.candles = dedupeSorted(candles)
	w.trimLocked()
}

// Append inserts c at the tail if its OpenTime is newer than the current
// tail, replaces the tail if OpenTime matches (duplicate, most-recent-wins),
// or is ignored if older than the tail (reordered/stale delivery).
// Returns true if the window's observable tail changed.
func (w *Window) Append(c Candle) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(w.candles)
	if n == 0 {
		w.candles = append(w.candles, c)
		return true
	}

	tail := w.candles[n-1]
	switch {
	case c.OpenTime.After(tail.OpenTime):
		w.candles = append(w.candles, c)
		w.trimLocked()
		return true
	case c.OpenTime.Equal(tail.OpenTime):
		w.candles[n-1] = c
		return true
	default:
		// Older than tail: reordered delivery, ignored
		return false
	}
}

func (w *Window) trimLocked() {
	if len(w.candles) > w.retention {
		w.candles = w.candles[len(w.candles)-w.retention:]
	}
}

// Snapshot returns a copy of the current candles, oldest first.
func (w *Window) Snapshot() []Candle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Candle, len(w.candles))
	copy(out, w.candles)
	return out
}

// Len returns the number of candles currently held.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.candles)
}

// Tail returns the most recent candle and true, or the zero value and false
// if the window is empty.
func (w *Window) Tail() (Candle, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.candles) == 0 {
		return Candle{}, false
	}
	return w.candles[len(w.candles)-1], true
}

// dedupeSorted sorts by OpenTime and keeps the last-seen candle for any
// duplicate OpenTime (most recent version wins).
func dedupeSorted(candles []Candle) []Candle {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})

	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if n := len(out); n > 0 && out[n-1].OpenTime.Equal(c.OpenTime) {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}
