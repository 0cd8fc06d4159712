package db

import (
	"signalapp/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Profile{},
		&models.Presence{},
		&models.Signal{},
		&models.ChangeEvent{},
	)
}
