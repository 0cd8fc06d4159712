package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"signalapp/internal/models"
	"signalapp/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository
// with the same ordering and conditional-update semantics as the gorm store.
type stubRepo struct {
	mu        sync.Mutex
	profiles  map[string]models.Profile
	presences map[string]models.Presence
	signals   map[string]models.Signal
	events    []models.ChangeEvent
	nextEvent uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		profiles:  map[string]models.Profile{},
		presences: map[string]models.Presence{},
		signals:   map[string]models.Signal{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) UpsertProfile(ctx context.Context, item *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[item.ID] = *item
	return nil
}

func (s *stubRepo) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[id]; ok {
		out := p
		return &out, nil
	}
	return nil, nil
}

func (s *stubRepo) ListProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Profile
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubRepo) UpsertPresence(ctx context.Context, item *models.Presence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presences[item.UserID] = *item
	return nil
}

func (s *stubRepo) GetPresence(ctx context.Context, userID string) (*models.Presence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.presences[userID]; ok {
		out := p
		return &out, nil
	}
	return nil, nil
}

func (s *stubRepo) ListOpenPresences(ctx context.Context, params repository.ListOpenPresencesParams) ([]models.Presence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Presence
	for _, p := range s.presences {
		if !p.IsOpen {
			continue
		}
		if p.UpdatedAt.Before(params.Since) {
			continue
		}
		if p.UserID == params.ExcludeUserID {
			continue
		}
		if params.RequireCoordinates && !p.HasCoordinates() {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *stubRepo) InsertSignal(ctx context.Context, item *models.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[item.ID] = *item
	return nil
}

func (s *stubRepo) GetSignalByID(ctx context.Context, id string) (*models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sig, ok := s.signals[id]; ok {
		out := sig
		return &out, nil
	}
	return nil, nil
}

func (s *stubRepo) UpdateSignalStatusIfPending(ctx context.Context, id string, status string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.signals[id]
	if !ok || sig.Status != models.SignalStatusPending {
		return 0, nil
	}
	sig.Status = status
	sig.UpdatedAt = at
	s.signals[id] = sig
	return 1, nil
}

func (s *stubRepo) ExpireDueSignals(ctx context.Context, now time.Time) ([]models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Signal
	for id, sig := range s.signals {
		if sig.Status != models.SignalStatusPending || sig.ExpiresAt.After(now) {
			continue
		}
		sig.Status = models.SignalStatusExpired
		sig.UpdatedAt = now
		s.signals[id] = sig
		out = append(out, sig)
	}
	return out, nil
}

func (s *stubRepo) ListIncomingPending(ctx context.Context, recipientID string, createdAfter time.Time) ([]models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Signal
	for _, sig := range s.signals {
		if sig.RecipientID != recipientID || sig.Status != models.SignalStatusPending {
			continue
		}
		if !sig.CreatedAt.After(createdAfter) {
			continue
		}
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *stubRepo) ListOutgoingActive(ctx context.Context, senderID string) ([]models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Signal
	for _, sig := range s.signals {
		if sig.SenderID != senderID || sig.Status == models.SignalStatusExpired {
			continue
		}
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *stubRepo) InsertChangeEvent(ctx context.Context, item *models.ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEvent++
	item.ID = s.nextEvent
	s.events = append(s.events, *item)
	return nil
}

func (s *stubRepo) ListChangeEventsSince(ctx context.Context, sinceID uint64, limit int) ([]models.ChangeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ChangeEvent
	for _, ev := range s.events {
		if ev.ID <= sinceID {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) DeleteChangeEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []models.ChangeEvent
	var deleted int64
	for _, ev := range s.events {
		if ev.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return deleted, nil
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
