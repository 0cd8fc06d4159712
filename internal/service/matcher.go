package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"signalapp/internal/config"
	"signalapp/internal/geo"
	"signalapp/internal/models"
	"signalapp/internal/repository"
)

// Candidate is one visible, fresh, in-range user relative to the caller.
// IsActive is always true for rows surviving the fresh-window filter; it is
// carried as data so consumers do not re-derive it.
type Candidate struct {
	UserID            string    `json:"user_id"`
	FirstName         *string   `json:"first_name"`
	Age               *int      `json:"age"`
	ProfilePictureURL *string   `json:"profile_picture_url"`
	DistanceMeters    float64   `json:"distance_meters"`
	UpdatedAt         time.Time `json:"updated_at"`
	IsActive          bool      `json:"is_active"`
}

// MatcherService computes the nearest-first candidate set for a caller's
// coordinates.
type MatcherService struct {
	Repo   repository.Repository
	Config config.PresenceConfig
	Logger *zap.Logger
}

// FindNearby returns every other open user with a fresh fix within the
// configured radius, sorted ascending by distance with updated_at descending
// breaking distance ties. Profile display data is attached with one batched
// lookup.
func (s *MatcherService) FindNearby(ctx context.Context, callerID string, lat, lng float64) ([]Candidate, error) {
	now := time.Now().UTC()
	rows, err := s.Repo.ListOpenPresences(ctx, repository.ListOpenPresencesParams{
		Since:              now.Add(-s.freshWindow()),
		ExcludeUserID:      callerID,
		RequireCoordinates: true,
	})
	if err != nil {
		return nil, err
	}

	radius := s.Config.RadiusMeters
	if radius <= 0 {
		radius = 45.72
	}

	inRange := make([]models.Presence, 0, len(rows))
	distances := make(map[string]float64, len(rows))
	for _, row := range rows {
		if !row.HasCoordinates() {
			continue
		}
		d := geo.HaversineMeters(lat, lng, *row.Lat, *row.Lng)
		if d > radius {
			continue
		}
		inRange = append(inRange, row)
		distances[row.UserID] = d
	}
	if len(inRange) == 0 {
		return []Candidate{}, nil
	}

	ids := make([]string, 0, len(inRange))
	for _, row := range inRange {
		ids = append(ids, row.UserID)
	}
	profiles, err := s.Repo.ListProfilesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	out := make([]Candidate, 0, len(inRange))
	for _, row := range inRange {
		c := Candidate{
			UserID:         row.UserID,
			DistanceMeters: distances[row.UserID],
			UpdatedAt:      row.UpdatedAt,
			IsActive:       now.Sub(row.UpdatedAt) < s.freshWindow(),
		}
		if p, ok := byID[row.UserID]; ok {
			c.FirstName = p.FirstName
			c.Age = p.Age(now)
			c.ProfilePictureURL = p.ProfilePictureURL
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	if s.Logger != nil {
		s.Logger.Debug("nearby computed",
			zap.String("caller", callerID),
			zap.Int("open_rows", len(rows)),
			zap.Int("in_range", len(out)),
		)
	}
	return out, nil
}

func (s *MatcherService) freshWindow() time.Duration {
	if s.Config.FreshWindow > 0 {
		return s.Config.FreshWindow
	}
	return 2 * time.Minute
}
