package signalapi

import (
	"context"
	"sync"
	"time"
)

// Fix is one geolocation reading.
type Fix struct {
	Lat float64
	Lng float64
}

// Locator produces the device's current coordinates. A nil fix with a nil
// error means the platform denied or cannot provide location; callers proceed
// without coordinates rather than failing the operation.
type Locator interface {
	Locate(ctx context.Context) (*Fix, error)
}

// LocatorFunc adapts a plain function to Locator.
type LocatorFunc func(ctx context.Context) (*Fix, error)

func (f LocatorFunc) Locate(ctx context.Context) (*Fix, error) { return f(ctx) }

const (
	locateTimeout = 10 * time.Second
	fixMaxAge     = 30 * time.Second
)

// CachedLocator bounds every lookup with a hard timeout and reuses a recent
// fix, so bursts of presence writes do not each pay the acquisition cost.
type CachedLocator struct {
	Source Locator

	mu  sync.Mutex
	fix *Fix
	at  time.Time
	now func() time.Time
}

func NewCachedLocator(source Locator) *CachedLocator {
	return &CachedLocator{Source: source, now: time.Now}
}

func (l *CachedLocator) Locate(ctx context.Context) (*Fix, error) {
	now := l.clock()

	l.mu.Lock()
	if l.fix != nil && now.Sub(l.at) < fixMaxAge {
		fix := *l.fix
		l.mu.Unlock()
		return &fix, nil
	}
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, locateTimeout)
	defer cancel()

	fix, err := l.Source.Locate(ctx)
	if err != nil {
		// Timeouts and denials degrade to coordinate-less operation.
		return nil, nil
	}
	if fix == nil {
		return nil, nil
	}

	l.mu.Lock()
	l.fix = fix
	l.at = l.clock()
	l.mu.Unlock()

	out := *fix
	return &out, nil
}

func (l *CachedLocator) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}
