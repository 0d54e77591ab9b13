package models

import "time"

// QuitProfile stores when a user quit and the habits used to derive progress figures.
type QuitProfile struct {
	UserID           string    `gorm:"primaryKey;size:128" json:"user_id"`
	QuitDate         time.Time `gorm:"not null" json:"quit_date"`
	CigarettesPerDay int       `gorm:"not null;default:0" json:"cigarettes_per_day"`
	PackSize         int       `gorm:"not null;default:20" json:"pack_size"`
	PackPrice        float64   `gorm:"not null;default:0" json:"pack_price"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
