package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/smokefree/internal/models"
)

// AutoMigrate creates or updates the schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.StorageEntry{},
		&models.DeviceToken{},
		&models.QuitProfile{},
	)
}
