package models

import (
	"time"

	"gorm.io/datatypes"
)

// Change event types mirror the row operations the realtime feed reports.
const (
	ChangeEventInsert = "INSERT"
	ChangeEventUpdate = "UPDATE"
)

// ChangeEvent is the outbox row behind the realtime feed: every successful
// presence/signal mutation appends one, the hub fans it out, and a cron job
// prunes rows past the retention window.
type ChangeEvent struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Table     string         `gorm:"column:table_name;type:varchar(50);not null;index" json:"table"`
	EventType string         `gorm:"type:varchar(10);not null" json:"event_type"`
	RowID     string         `gorm:"type:varchar(100);not null" json:"row_id"`
	// Recipients restricts delivery to the named user ids; null means
	// table-wide broadcast.
	Recipients datatypes.JSON `gorm:"type:jsonb" json:"recipients,omitempty"`
	Payload    datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt  time.Time      `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (ChangeEvent) TableName() string {
	return "change_events"
}
