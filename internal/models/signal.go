package models

import (
	"time"
)

// Signal statuses. Pending is the only non-terminal state; once a signal
// leaves it the status never changes again.
const (
	SignalStatusPending  = "pending"
	SignalStatusAccepted = "accepted"
	SignalStatusIgnored  = "ignored"
	SignalStatusExpired  = "expired"
)

// Signal is a directed, time-boxed connection request. ExpiresAt is fixed at
// creation and never extended. Rows are kept after resolution; the view
// queries filter them by status and recency instead of deleting.
type Signal struct {
	ID          string  `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID    string  `gorm:"type:uuid;not null;index" json:"sender_id"`
	RecipientID string  `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Status      string  `gorm:"type:varchar(20);not null;index" json:"status"`
	Message     *string `gorm:"type:text" json:"message"`

	CreatedAt time.Time `gorm:"type:timestamptz;not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null" json:"updated_at"`
	ExpiresAt time.Time `gorm:"type:timestamptz;not null;index" json:"expires_at"`
}

func (Signal) TableName() string {
	return "signals"
}

// Terminal reports whether the status admits no further transition.
func (s Signal) Terminal() bool {
	return s.Status != SignalStatusPending
}
