package models

import (
	"time"

	"gorm.io/datatypes"
)

// StorageEntry is one durable key/value row. Values are JSON documents such as a user's
// persisted notification collection.
type StorageEntry struct {
	Key       string         `gorm:"primaryKey;size:256"`
	Value     datatypes.JSON `gorm:"not null"`
	ExpiresAt time.Time      `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
