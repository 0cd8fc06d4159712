package models

import (
	"time"
)

// Presence is the per-user visibility record: one row per user, upserted on
// every toggle and heartbeat. Lat/Lng are both set or both null; UpdatedAt is
// the sole staleness signal for matching. Rows are never deleted, stale ones
// simply age out of the fresh window.
type Presence struct {
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	IsOpen    bool      `gorm:"not null;index" json:"is_open"`
	Lat       *float64  `json:"lat"`
	Lng       *float64  `json:"lng"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;index" json:"updated_at"`
}

func (Presence) TableName() string {
	return "presence"
}

// HasCoordinates reports whether the row carries a usable fix.
func (p Presence) HasCoordinates() bool {
	return p.Lat != nil && p.Lng != nil
}
