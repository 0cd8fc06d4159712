package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"signalapp/internal/models"
	"signalapp/internal/repository"
)

// ProfileService maintains the user-facing profile rows that the matcher
// joins against when building candidate cards.
type ProfileService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// ProfileUpdate carries the writable fields; nil leaves the stored value
// untouched.
type ProfileUpdate struct {
	FirstName         *string
	DateOfBirth       *time.Time
	ProfilePictureURL *string
}

// Get returns the profile for the given user, nil when none exists yet.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	return s.Repo.GetProfileByID(ctx, userID)
}

// Upsert creates or amends the caller's profile, merging the update over the
// stored row.
func (s *ProfileService) Upsert(ctx context.Context, userID string, update ProfileUpdate) (*models.Profile, error) {
	now := time.Now().UTC()
	item, err := s.Repo.GetProfileByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		item = &models.Profile{ID: userID, CreatedAt: now}
	}
	if update.FirstName != nil {
		item.FirstName = update.FirstName
	}
	if update.DateOfBirth != nil {
		item.DateOfBirth = update.DateOfBirth
	}
	if update.ProfilePictureURL != nil {
		item.ProfilePictureURL = update.ProfilePictureURL
	}
	item.UpdatedAt = now
	if err := s.Repo.UpsertProfile(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}
