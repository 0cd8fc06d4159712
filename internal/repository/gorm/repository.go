package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"signalapp/internal/models"
	"signalapp/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- profiles ---------------------------------------------------------------

func (s *Store) UpsertProfile(ctx context.Context, item *models.Profile) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.ID) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"first_name",
			"date_of_birth",
			"profile_picture_url",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Profile
	err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil, nil
	}
	var items []models.Profile
	if err := s.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id IN ?", ids).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- presence ---------------------------------------------------------------

func (s *Store) UpsertPresence(ctx context.Context, item *models.Presence) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.UserID) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_open",
			"lat",
			"lng",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetPresence(ctx context.Context, userID string) (*models.Presence, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	var item models.Presence
	err := s.db.WithContext(ctx).Model(&models.Presence{}).Where("user_id = ?", userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListOpenPresences(ctx context.Context, params repository.ListOpenPresencesParams) ([]models.Presence, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.Presence{}).
		Where("is_open = ?", true)
	if !params.Since.IsZero() {
		query = query.Where("updated_at >= ?", params.Since)
	}
	if params.ExcludeUserID != "" {
		query = query.Where("user_id <> ?", params.ExcludeUserID)
	}
	if params.RequireCoordinates {
		query = query.Where("lat IS NOT NULL").Where("lng IS NOT NULL")
	}
	var items []models.Presence
	if err := query.Order("updated_at desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- signals ----------------------------------------------------------------

func (s *Store) InsertSignal(ctx context.Context, item *models.Signal) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetSignalByID(ctx context.Context, id string) (*models.Signal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Signal
	err := s.db.WithContext(ctx).Model(&models.Signal{}).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateSignalStatusIfPending performs the row-level conditional write that
// serializes competing respond/cancel/expire outcomes. Zero rows affected
// means the signal already left pending.
func (s *Store) UpdateSignalStatusIfPending(ctx context.Context, id string, status string, at time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Signal{}).
		Where("id = ?", id).
		Where("status = ?", models.SignalStatusPending).
		Updates(map[string]any{"status": status, "updated_at": at})
	return res.RowsAffected, res.Error
}

// ExpireDueSignals flips every overdue pending signal to expired and returns
// the affected rows so the caller can notify both parties. The same
// status='pending' condition keeps it safe against concurrent responds.
func (s *Store) ExpireDueSignals(ctx context.Context, now time.Time) ([]models.Signal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	var expired []models.Signal
	res := s.db.WithContext(ctx).
		Model(&expired).
		Clauses(clause.Returning{}).
		Where("status = ?", models.SignalStatusPending).
		Where("expires_at <= ?", now).
		Updates(map[string]any{"status": models.SignalStatusExpired, "updated_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	return expired, nil
}

func (s *Store) ListIncomingPending(ctx context.Context, recipientID string, createdAfter time.Time) ([]models.Signal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.Signal{}).
		Where("recipient_id = ?", recipientID).
		Where("status = ?", models.SignalStatusPending)
	if !createdAfter.IsZero() {
		query = query.Where("created_at > ?", createdAfter)
	}
	var items []models.Signal
	if err := query.Order("created_at desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListOutgoingActive(ctx context.Context, senderID string) ([]models.Signal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Signal
	if err := s.db.WithContext(ctx).
		Model(&models.Signal{}).
		Where("sender_id = ?", senderID).
		Where("status <> ?", models.SignalStatusExpired).
		Order("created_at desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- change-event outbox ----------------------------------------------------

func (s *Store) InsertChangeEvent(ctx context.Context, item *models.ChangeEvent) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListChangeEventsSince(ctx context.Context, sinceID uint64, limit int) ([]models.ChangeEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 200
	}
	var items []models.ChangeEvent
	if err := s.db.WithContext(ctx).
		Model(&models.ChangeEvent{}).
		Where("id > ?", sinceID).
		Order("id asc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteChangeEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.ChangeEvent{})
	return res.RowsAffected, res.Error
}
