package models

import "time"

// DevicePlatformWeb is the only platform the registration endpoint records today.
const DevicePlatformWeb = "web"

// DeviceToken is a push delivery token registered by one of a user's devices.
// Rows are keyed by (user, token) so registering the same token twice overwrites.
type DeviceToken struct {
	UserID    string    `gorm:"primaryKey;size:128" json:"-"`
	Token     string    `gorm:"primaryKey;size:512" json:"token"`
	Platform  string    `gorm:"size:32;not null;default:'web'" json:"platform"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}
