package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/smokefree/internal/middleware"
	"github.com/charlesng35/smokefree/internal/milestones"
	"github.com/charlesng35/smokefree/internal/models"
	"github.com/charlesng35/smokefree/internal/progress"
	"github.com/charlesng35/smokefree/internal/services"
	"github.com/charlesng35/smokefree/internal/session"
	"github.com/charlesng35/smokefree/pkg/errors"
	"github.com/charlesng35/smokefree/pkg/response"
)

// ProfileStore persists quit profiles.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*models.QuitProfile, error)
	Save(ctx context.Context, userID string, input services.ProfileInput) (*models.QuitProfile, error)
}

// ProfileHandler exposes the quit profile, derived progress and milestone checks.
type ProfileHandler struct {
	profiles ProfileStore
	sessions *session.Manager
	location *time.Location
	now      func() time.Time
}

// NewProfileHandler constructs a ProfileHandler. Days are counted in loc.
func NewProfileHandler(profiles ProfileStore, sessions *session.Manager, loc *time.Location) *ProfileHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ProfileHandler{profiles: profiles, sessions: sessions, location: loc, now: time.Now}
}

type milestoneCheckRequest struct {
	DaysSinceQuit *int `json:"days_since_quit" validate:"omitempty,gte=0"`
}

type milestoneCheckResult struct {
	DaysSinceQuit int                   `json:"days_since_quit"`
	Emitted       bool                  `json:"emitted"`
	Milestone     *milestones.Milestone `json:"milestone,omitempty"`
}

// Get returns the caller's quit profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	profile, err := h.profiles.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// Update creates or replaces the caller's quit profile.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req services.ProfileInput
	if !bindAndValidate(c, &req) {
		return
	}

	profile, err := h.profiles.Save(requestContext(c), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// Progress derives the caller's quit statistics.
func (h *ProfileHandler) Progress(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	profile, err := h.profiles.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, progress.Calculate(*profile, h.now(), h.location))
}

// CheckMilestones emits the milestone for the caller's day count when it matches exactly.
// The day count comes from the body when given, otherwise from the quit profile.
func (h *ProfileHandler) CheckMilestones(c *gin.Context) {
	s, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	var req milestoneCheckRequest
	if !bindOptional(c, &req) {
		return
	}

	var days int
	if req.DaysSinceQuit != nil {
		days = *req.DaysSinceQuit
	} else {
		profile, err := h.profiles.Get(requestContext(c), s.UserID())
		if err != nil {
			response.Error(c, err)
			return
		}
		days = progress.DaysSince(profile.QuitDate, h.now(), h.location)
	}

	result := milestoneCheckResult{
		DaysSinceQuit: days,
		Emitted:       s.Milestones().CheckMilestones(requestContext(c), days),
	}
	if result.Emitted {
		if m, found := milestones.Lookup(days); found {
			result.Milestone = &m
		}
	}
	response.Success(c, http.StatusOK, result)
}
