package signalapi

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const nearbyDebounce = 1 * time.Second

// NearbyWatcher keeps a current nearby candidate list. Refresh requests
// arriving within the debounce window collapse into one fetch, which absorbs
// the burst of change events a busy area produces. A failed fetch keeps the
// last good list instead of blanking the display.
type NearbyWatcher struct {
	Client   *Client
	Locator  Locator
	Logger   *zap.Logger
	Debounce time.Duration
	OnUpdate func([]Candidate)

	mu      sync.Mutex
	last    []Candidate
	pending *time.Timer
}

// Current returns the last successfully fetched list.
func (w *NearbyWatcher) Current() []Candidate {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Candidate, len(w.last))
	copy(out, w.last)
	return out
}

// Request schedules a refresh. Repeated calls inside the debounce window
// reset the timer, so only the trailing edge fetches.
func (w *NearbyWatcher) Request(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.Debounce
	if d <= 0 {
		d = nearbyDebounce
	}
	if w.pending != nil {
		w.pending.Reset(d)
		return
	}
	w.pending = time.AfterFunc(d, func() {
		w.mu.Lock()
		w.pending = nil
		w.mu.Unlock()
		w.refresh(ctx)
	})
}

// Stop cancels any pending debounced fetch. Requests after Stop schedule
// normally; Stop is teardown for the current pending work, not a terminal
// state.
func (w *NearbyWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
}

// RefreshNow fetches immediately, bypassing the debounce.
func (w *NearbyWatcher) RefreshNow(ctx context.Context) {
	w.refresh(ctx)
}

func (w *NearbyWatcher) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if w.Locator == nil {
		return
	}
	fix, err := w.Locator.Locate(ctx)
	if err != nil || fix == nil {
		// Without a fix there is no meaningful nearby query.
		return
	}
	items, err := w.Client.Nearby(ctx, fix.Lat, fix.Lng)
	if err != nil {
		if w.Logger != nil && ctx.Err() == nil {
			w.Logger.Warn("nearby refresh failed, keeping previous list", zap.Error(err))
		}
		return
	}
	w.mu.Lock()
	w.last = items
	w.mu.Unlock()
	if w.OnUpdate != nil {
		w.OnUpdate(items)
	}
}
