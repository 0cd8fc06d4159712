package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"signalapp/internal/models"
)

// Repository is the storage surface consumed by the presence, matcher, and
// signal services. The gorm implementation lives in repository/gorm; tests
// substitute in-memory stubs.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Profiles.
	UpsertProfile(ctx context.Context, item *models.Profile) error
	GetProfileByID(ctx context.Context, id string) (*models.Profile, error)
	ListProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error)

	// Presence. UpsertPresence carries upsert-by-key semantics: exactly one
	// row per user regardless of call interleaving.
	UpsertPresence(ctx context.Context, item *models.Presence) error
	GetPresence(ctx context.Context, userID string) (*models.Presence, error)
	ListOpenPresences(ctx context.Context, params ListOpenPresencesParams) ([]models.Presence, error)

	// Signals. UpdateSignalStatusIfPending is the atomic conditional update
	// that serializes respond/cancel/expire races; it reports how many rows
	// actually changed so callers can distinguish "already resolved".
	InsertSignal(ctx context.Context, item *models.Signal) error
	GetSignalByID(ctx context.Context, id string) (*models.Signal, error)
	UpdateSignalStatusIfPending(ctx context.Context, id string, status string, at time.Time) (int64, error)
	ExpireDueSignals(ctx context.Context, now time.Time) ([]models.Signal, error)
	ListIncomingPending(ctx context.Context, recipientID string, createdAfter time.Time) ([]models.Signal, error)
	ListOutgoingActive(ctx context.Context, senderID string) ([]models.Signal, error)

	// Change-event outbox backing the realtime feed.
	InsertChangeEvent(ctx context.Context, item *models.ChangeEvent) error
	ListChangeEventsSince(ctx context.Context, sinceID uint64, limit int) ([]models.ChangeEvent, error)
	DeleteChangeEventsBefore(ctx context.Context, before time.Time) (int64, error)
}

type ListOpenPresencesParams struct {
	// Since is the freshness floor on updated_at.
	Since time.Time
	// ExcludeUserID removes the caller's own row.
	ExcludeUserID string
	// RequireCoordinates drops rows with null lat/lng in the query itself.
	RequireCoordinates bool
}
