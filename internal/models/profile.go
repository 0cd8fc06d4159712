package models

import (
	"time"
)

// Profile holds the display data attached to nearby candidates. Rows are
// created by the identity provider flow; this service only reads them for
// matching and lets users edit their own.
type Profile struct {
	ID                string     `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName         *string    `gorm:"type:varchar(100)" json:"first_name"`
	DateOfBirth       *time.Time `gorm:"type:date" json:"date_of_birth"`
	ProfilePictureURL *string    `gorm:"type:text" json:"profile_picture_url"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Age derives whole years from the date of birth at the given instant.
// Returns nil when the date of birth is unset.
func (p Profile) Age(now time.Time) *int {
	if p.DateOfBirth == nil {
		return nil
	}
	dob := *p.DateOfBirth
	years := now.Year() - dob.Year()
	anniversary := time.Date(now.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	if now.Before(anniversary) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return &years
}
