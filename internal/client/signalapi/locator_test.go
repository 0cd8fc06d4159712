package signalapi

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCachedLocatorReusesRecentFix(t *testing.T) {
	calls := 0
	now := time.Now()
	l := NewCachedLocator(LocatorFunc(func(context.Context) (*Fix, error) {
		calls++
		return &Fix{Lat: 40, Lng: -73}, nil
	}))
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		fix, err := l.Locate(context.Background())
		if err != nil || fix == nil {
			t.Fatalf("locate %d: %v %v", i, fix, err)
		}
	}
	if calls != 1 {
		t.Fatalf("source calls=%d want 1", calls)
	}

	// Past the max age the source is consulted again.
	now = now.Add(31 * time.Second)
	if _, err := l.Locate(context.Background()); err != nil {
		t.Fatalf("relocate: %v", err)
	}
	if calls != 2 {
		t.Fatalf("source calls=%d want 2", calls)
	}
}

func TestCachedLocatorDenialDegradesToNil(t *testing.T) {
	l := NewCachedLocator(LocatorFunc(func(context.Context) (*Fix, error) {
		return nil, errors.New("permission denied")
	}))
	fix, err := l.Locate(context.Background())
	if err != nil {
		t.Fatalf("denial should not be an error: %v", err)
	}
	if fix != nil {
		t.Fatalf("fix=%+v want nil", fix)
	}
}

func TestCachedLocatorBoundsSlowSource(t *testing.T) {
	l := NewCachedLocator(LocatorFunc(func(ctx context.Context) (*Fix, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	fix, err := l.Locate(ctx)
	if err != nil || fix != nil {
		t.Fatalf("timeout should degrade to nil fix: %v %v", fix, err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("locate did not respect context deadline")
	}
}
