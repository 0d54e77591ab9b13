package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/smokefree/internal/models"
	apperrors "github.com/charlesng35/smokefree/pkg/errors"
)

// DeviceTokenService persists push delivery tokens per user.
type DeviceTokenService struct {
	db *gorm.DB
}

// NewDeviceTokenService constructs a DeviceTokenService.
func NewDeviceTokenService(db *gorm.DB) (*DeviceTokenService, error) {
	if db == nil {
		return nil, fmt.Errorf("device token service: db is required")
	}
	return &DeviceTokenService{db: db}, nil
}

// Register stores token for userID. Registering an existing token refreshes it in place.
func (s *DeviceTokenService) Register(ctx context.Context, userID, token string) error {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return apperrors.NewBadRequest("userId and token are required")
	}

	row := models.DeviceToken{
		UserID:   userID,
		Token:    token,
		Platform: models.DevicePlatformWeb,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"platform", "created_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("device token service: register: %w", err)
	}
	return nil
}

// List returns the tokens registered for userID, newest first.
func (s *DeviceTokenService) List(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	var tokens []models.DeviceToken
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("device token service: list: %w", err)
	}
	return tokens, nil
}

// Revoke removes token from userID. Unknown tokens yield apperrors.ErrNotFound.
func (s *DeviceTokenService) Revoke(ctx context.Context, userID, token string) error {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return apperrors.NewBadRequest("userId and token are required")
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&models.DeviceToken{})
	if result.Error != nil {
		return fmt.Errorf("device token service: revoke: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
