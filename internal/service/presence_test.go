package service

import (
	"context"
	"testing"
)

func TestPresenceSet_PartialCoordinatesRejected(t *testing.T) {
	svc := &PresenceService{Repo: newStubRepo()}
	if _, err := svc.Set(context.Background(), "u1", true, floatPtr(40.0), nil); err != ErrPartialCoordinates {
		t.Fatalf("err=%v want ErrPartialCoordinates", err)
	}
	if _, err := svc.Set(context.Background(), "u1", true, nil, floatPtr(-73.0)); err != ErrPartialCoordinates {
		t.Fatalf("err=%v want ErrPartialCoordinates", err)
	}
}

func TestPresenceSet_UpsertsSingleRow(t *testing.T) {
	repo := newStubRepo()
	svc := &PresenceService{Repo: repo}
	ctx := context.Background()

	if _, err := svc.Set(ctx, "u1", true, floatPtr(40.0), floatPtr(-73.0)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := svc.Set(ctx, "u1", false, floatPtr(41.0), floatPtr(-74.0)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := repo.GetPresence(ctx, "u1")
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.IsOpen {
		t.Fatalf("is_open=true want false after second write")
	}
	if *got.Lat != 41.0 || *got.Lng != -74.0 {
		t.Fatalf("coords=(%v,%v) want (41,-74)", *got.Lat, *got.Lng)
	}
	if len(repo.presences) != 1 {
		t.Fatalf("rows=%d want 1", len(repo.presences))
	}
}

func TestPresenceSet_WritesExactlyWhatClientSent(t *testing.T) {
	repo := newStubRepo()
	svc := &PresenceService{Repo: repo}
	ctx := context.Background()

	if _, err := svc.Set(ctx, "u1", true, floatPtr(40.0), floatPtr(-73.0)); err != nil {
		t.Fatalf("open: %v", err)
	}
	got, err := svc.Set(ctx, "u1", false, nil, nil)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if got.HasCoordinates() {
		t.Fatalf("coordinate-less write stored coords (%v,%v)", got.Lat, got.Lng)
	}
}

func TestPresenceSet_ReopenWithoutFixDoesNotResurfaceOldLocation(t *testing.T) {
	repo := newStubRepo()
	svc := &PresenceService{Repo: repo}
	ctx := context.Background()

	// Earlier session: open with a fix, then close.
	if _, err := svc.Set(ctx, "u1", true, floatPtr(baseLat), floatPtr(baseLng)); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.Set(ctx, "u1", false, nil, nil); err != nil {
		t.Fatalf("close: %v", err)
	}

	// New session with geolocation denied: open carries no coordinates.
	got, err := svc.Set(ctx, "u1", true, nil, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got.HasCoordinates() {
		t.Fatalf("reopen without fix kept stale coords (%v,%v)", *got.Lat, *got.Lng)
	}

	out, err := newMatcher(repo).FindNearby(ctx, "viewer", baseLat, baseLng)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("fix-less user surfaced in nearby: %+v", out)
	}
}

func TestPresenceSet_OpenWithoutFix(t *testing.T) {
	repo := newStubRepo()
	svc := &PresenceService{Repo: repo}

	got, err := svc.Set(context.Background(), "u1", true, nil, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !got.IsOpen {
		t.Fatalf("is_open=false want true")
	}
	if got.HasCoordinates() {
		t.Fatalf("coords present, want null both")
	}
}

func TestPresenceHeartbeat_RestampsStoredState(t *testing.T) {
	repo := newStubRepo()
	svc := &PresenceService{Repo: repo}
	ctx := context.Background()

	first, err := svc.Set(ctx, "u1", true, floatPtr(40.0), floatPtr(-73.0))
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := svc.Heartbeat(ctx, "u1")
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if !got.IsOpen {
		t.Fatalf("heartbeat flipped is_open")
	}
	if *got.Lat != 40.0 || *got.Lng != -73.0 {
		t.Fatalf("heartbeat changed coords")
	}
	if got.UpdatedAt.Before(first.UpdatedAt) {
		t.Fatalf("updated_at went backwards")
	}
}

func TestPresenceHeartbeat_NoRowCreatesClosed(t *testing.T) {
	svc := &PresenceService{Repo: newStubRepo()}
	got, err := svc.Heartbeat(context.Background(), "u1")
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if got.IsOpen {
		t.Fatalf("lazily created row should be closed")
	}
}
