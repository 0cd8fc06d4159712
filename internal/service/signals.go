package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signalapp/internal/config"
	"signalapp/internal/models"
	"signalapp/internal/realtime"
	"signalapp/internal/repository"
)

// SignalService is the lifecycle engine for directed connection requests:
// pending -> accepted | ignored | expired, all three terminal. Every
// transition goes through the repository's conditional update so racing
// respond/cancel/expire calls resolve to exactly one winner.
type SignalService struct {
	Repo   repository.Repository
	Events *realtime.Hub
	Config config.SignalsConfig
	Logger *zap.Logger
}

// Create inserts a new pending signal with a fixed expiry horizon. Duplicate
// pendings from the same sender to the same recipient are allowed: re-pinging
// after a missed signal is a feature, not a conflict.
func (s *SignalService) Create(ctx context.Context, senderID, recipientID string, message *string) (*models.Signal, error) {
	if senderID == recipientID {
		return nil, ErrSelfSignal
	}
	recipient, err := s.Repo.GetProfileByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, ErrUnknownRecipient
	}

	now := time.Now().UTC()
	item := &models.Signal{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Status:      models.SignalStatusPending,
		Message:     message,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.ttl()),
	}
	if err := s.Repo.InsertSignal(ctx, item); err != nil {
		return nil, err
	}

	s.publish(ctx, item, models.ChangeEventInsert)
	return item, nil
}

// Respond moves a pending signal to accepted or ignored on behalf of its
// recipient. The status write is conditioned on the row still being pending;
// losing that race yields ErrAlreadyResolved, never a silent overwrite.
func (s *SignalService) Respond(ctx context.Context, signalID, actingUserID, response string) (*models.Signal, error) {
	if response != models.SignalStatusAccepted && response != models.SignalStatusIgnored {
		return nil, ErrInvalidResponse
	}
	item, err := s.Repo.GetSignalByID(ctx, signalID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrSignalNotFound
	}
	if item.RecipientID != actingUserID {
		return nil, ErrNotRecipient
	}
	return s.transition(ctx, item, response)
}

// Cancel is the sender-side retraction of a still-pending signal, recorded as
// the shared ignored terminal status.
func (s *SignalService) Cancel(ctx context.Context, signalID, actingUserID string) (*models.Signal, error) {
	item, err := s.Repo.GetSignalByID(ctx, signalID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrSignalNotFound
	}
	if item.SenderID != actingUserID {
		return nil, ErrNotSender
	}
	return s.transition(ctx, item, models.SignalStatusIgnored)
}

func (s *SignalService) transition(ctx context.Context, item *models.Signal, status string) (*models.Signal, error) {
	now := time.Now().UTC()
	rows, err := s.Repo.UpdateSignalStatusIfPending(ctx, item.ID, status, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrAlreadyResolved
	}
	item.Status = status
	item.UpdatedAt = now
	s.publish(ctx, item, models.ChangeEventUpdate)
	return item, nil
}

// ExpireDue sweeps every overdue pending signal to expired. Idempotent: a
// second sweep finds nothing pending and changes nothing. Runs both on a cron
// schedule and on demand when a client loads.
func (s *SignalService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	expired, err := s.Repo.ExpireDueSignals(ctx, now)
	if err != nil {
		return 0, err
	}
	for i := range expired {
		s.publish(ctx, &expired[i], models.ChangeEventUpdate)
	}
	if len(expired) > 0 && s.Logger != nil {
		s.Logger.Info("expired overdue signals", zap.Int("count", len(expired)))
	}
	return int64(len(expired)), nil
}

// Incoming lists pending signals addressed to the user, newest first,
// restricted to the inbox recency window so stale unanswered noise stays
// hidden even before formal expiry.
func (s *SignalService) Incoming(ctx context.Context, userID string) ([]models.Signal, error) {
	cutoff := time.Now().UTC().Add(-s.inboxWindow())
	return s.Repo.ListIncomingPending(ctx, userID, cutoff)
}

// Outgoing lists the user's sent signals that have not expired, newest first.
func (s *SignalService) Outgoing(ctx context.Context, userID string) ([]models.Signal, error) {
	return s.Repo.ListOutgoingActive(ctx, userID)
}

func (s *SignalService) ttl() time.Duration {
	if s.Config.TTL > 0 {
		return s.Config.TTL
	}
	return 5 * time.Minute
}

func (s *SignalService) inboxWindow() time.Duration {
	if s.Config.InboxWindow > 0 {
		return s.Config.InboxWindow
	}
	return 5 * time.Minute
}

func (s *SignalService) publish(ctx context.Context, item *models.Signal, eventType string) {
	if s.Events == nil {
		return
	}
	payload, err := json.Marshal(item)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("signal event marshal failed", zap.Error(err))
		}
		return
	}
	// Signal changes concern exactly the two parties.
	s.Events.Publish(ctx, realtime.Event{
		Table:   models.Signal{}.TableName(),
		Type:    eventType,
		RowID:   item.ID,
		UserIDs: []string{item.SenderID, item.RecipientID},
		Payload: payload,
	})
}
