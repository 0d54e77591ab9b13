package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/smokefree/internal/models"
	apperrors "github.com/charlesng35/smokefree/pkg/errors"
	"github.com/charlesng35/smokefree/pkg/validator"
)

// ErrProfileNotFound is returned when a user has not saved a quit profile.
var ErrProfileNotFound = apperrors.New("PROFILE_NOT_FOUND", "Quit profile not found", http.StatusNotFound)

// ProfileInput captures the editable quit profile fields.
type ProfileInput struct {
	QuitDate         time.Time `json:"quit_date" validate:"required"`
	CigarettesPerDay int       `json:"cigarettes_per_day" validate:"gte=0,lte=200"`
	PackSize         int       `json:"pack_size" validate:"omitempty,gte=1,lte=100"`
	PackPrice        float64   `json:"pack_price" validate:"gte=0"`
}

// ProfileService manages quit profiles.
type ProfileService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *gorm.DB) (*ProfileService, error) {
	if db == nil {
		return nil, fmt.Errorf("profile service: db is required")
	}
	return &ProfileService{db: db, now: time.Now}, nil
}

// Get loads the profile of userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.QuitProfile, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	var profile models.QuitProfile
	err := s.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("profile service: get: %w", err)
	}
	return &profile, nil
}

// Save creates or replaces the profile of userID.
func (s *ProfileService) Save(ctx context.Context, userID string, input ProfileInput) (*models.QuitProfile, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}
	if input.QuitDate.After(s.now()) {
		return nil, apperrors.NewBadRequest("quit_date cannot be in the future")
	}

	profile := models.QuitProfile{
		UserID:           userID,
		QuitDate:         input.QuitDate.UTC(),
		CigarettesPerDay: input.CigarettesPerDay,
		PackSize:         input.PackSize,
		PackPrice:        input.PackPrice,
	}
	if profile.PackSize == 0 {
		profile.PackSize = 20
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quit_date", "cigarettes_per_day", "pack_size", "pack_price", "updated_at"}),
	}).Create(&profile).Error
	if err != nil {
		return nil, fmt.Errorf("profile service: save: %w", err)
	}
	return s.Get(ctx, userID)
}

// ListByUsers returns the profiles that exist for userIDs, keyed by user id.
func (s *ProfileService) ListByUsers(ctx context.Context, userIDs []string) (map[string]models.QuitProfile, error) {
	ctx = ensureContext(ctx)
	ids := uniqueIDs(userIDs)
	out := make(map[string]models.QuitProfile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var profiles []models.QuitProfile
	if err := s.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("profile service: list: %w", err)
	}
	for _, p := range profiles {
		out[p.UserID] = p
	}
	return out, nil
}

func uniqueIDs(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if _, dup := seen[value]; value == "" || dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
