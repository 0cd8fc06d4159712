package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"signalapp/internal/models"
	"signalapp/internal/realtime"
	"signalapp/internal/repository"
)

// PresenceService owns the per-user visibility row: upsert semantics, the
// both-or-neither coordinate invariant, and the change event that triggers
// nearby recomputation on every open client.
type PresenceService struct {
	Repo   repository.Repository
	Events *realtime.Hub
	Logger *zap.Logger
}

// Set upserts the caller's presence with exactly the coordinates the client
// sent. Opening without a fix (geolocation denied or timed out) is recorded
// as open with null coordinates, so the user stays invisible to the matcher
// until a refresh lands; an earlier session's fix is never resurrected.
// Coordinate carry-forward belongs to Heartbeat only.
func (s *PresenceService) Set(ctx context.Context, userID string, isOpen bool, lat, lng *float64) (*models.Presence, error) {
	if (lat == nil) != (lng == nil) {
		return nil, ErrPartialCoordinates
	}

	item := &models.Presence{
		UserID:    userID,
		IsOpen:    isOpen,
		Lat:       lat,
		Lng:       lng,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.Repo.UpsertPresence(ctx, item); err != nil {
		return nil, err
	}

	s.publish(ctx, item)
	return item, nil
}

// Heartbeat re-stamps updated_at with the stored open state and coordinates.
// A heartbeat for a user with no presence row yet lazily creates a closed
// one.
func (s *PresenceService) Heartbeat(ctx context.Context, userID string) (*models.Presence, error) {
	prev, err := s.Repo.GetPresence(ctx, userID)
	if err != nil {
		return nil, err
	}
	item := &models.Presence{
		UserID:    userID,
		UpdatedAt: time.Now().UTC(),
	}
	if prev != nil {
		item.IsOpen = prev.IsOpen
		item.Lat = prev.Lat
		item.Lng = prev.Lng
	}
	if err := s.Repo.UpsertPresence(ctx, item); err != nil {
		return nil, err
	}
	s.publish(ctx, item)
	return item, nil
}

// Get returns the caller's own presence row, nil when none exists yet.
func (s *PresenceService) Get(ctx context.Context, userID string) (*models.Presence, error) {
	return s.Repo.GetPresence(ctx, userID)
}

func (s *PresenceService) publish(ctx context.Context, item *models.Presence) {
	if s.Events == nil {
		return
	}
	payload, err := json.Marshal(item)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("presence event marshal failed", zap.Error(err))
		}
		return
	}
	// Table-wide broadcast: any open client may need to recompute nearby.
	s.Events.Publish(ctx, realtime.Event{
		Table:   models.Presence{}.TableName(),
		Type:    models.ChangeEventUpdate,
		RowID:   item.UserID,
		Payload: payload,
	})
}
