package signalapi

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	toggleTimeout     = 10 * time.Second
	heartbeatInterval = 45 * time.Second
)

// PresenceController drives the open/closed toggle and the heartbeat loop.
// Toggling is optimistic: listeners see the desired state immediately, and the
// state reverts if the server write fails or exceeds the toggle timeout.
type PresenceController struct {
	Client   *Client
	Locator  Locator
	Logger   *zap.Logger
	OnChange func(isOpen bool)

	mu        sync.Mutex
	isOpen    bool
	hbCancel  context.CancelFunc
	closeOnce sync.Once
}

// IsOpen reports the current (possibly optimistic) open state.
func (p *PresenceController) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isOpen
}

// SetOpen flips visibility. The new state is reported to OnChange before the
// server round trip; on failure the previous state is restored and reported
// again.
func (p *PresenceController) SetOpen(ctx context.Context, open bool) error {
	p.mu.Lock()
	prev := p.isOpen
	p.isOpen = open
	p.mu.Unlock()
	if prev == open {
		return nil
	}
	p.notify(open)

	ctx, cancel := context.WithTimeout(ctx, toggleTimeout)
	defer cancel()

	var lat, lng *float64
	if open && p.Locator != nil {
		if fix, err := p.Locator.Locate(ctx); err == nil && fix != nil {
			lat, lng = &fix.Lat, &fix.Lng
		}
	}

	if _, err := p.Client.SetPresence(ctx, open, lat, lng); err != nil {
		p.mu.Lock()
		p.isOpen = prev
		p.mu.Unlock()
		p.notify(prev)
		if p.Logger != nil {
			p.Logger.Warn("presence toggle failed, reverted", zap.Bool("wanted_open", open), zap.Error(err))
		}
		return err
	}

	if open {
		p.startHeartbeat()
	} else {
		p.stopHeartbeat()
	}
	return nil
}

// Close stops the heartbeat loop. It does not write a closed presence; callers
// that want to disappear immediately call SetOpen(ctx, false) first.
func (p *PresenceController) Close() {
	p.closeOnce.Do(p.stopHeartbeat)
}

func (p *PresenceController) startHeartbeat() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hbCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.hbCancel = cancel
	go p.heartbeatLoop(ctx)
}

func (p *PresenceController) stopHeartbeat() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hbCancel != nil {
		p.hbCancel()
		p.hbCancel = nil
	}
}

func (p *PresenceController) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A failed tick is tolerable; the next one re-stamps freshness.
			if _, err := p.Client.Heartbeat(ctx); err != nil && ctx.Err() == nil {
				if p.Logger != nil {
					p.Logger.Warn("presence heartbeat failed", zap.Error(err))
				}
			}
		}
	}
}

func (p *PresenceController) notify(open bool) {
	if p.OnChange != nil {
		p.OnChange(open)
	}
}
