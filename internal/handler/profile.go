package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signalapp/internal/auth"
	"signalapp/internal/service"
)

type ProfileHandler struct {
	Profiles *service.ProfileService
	Logger   *zap.Logger
}

func (h *ProfileHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.GET("/profile", h.get)
	group.PUT("/profile", h.put)
}

type putProfileRequest struct {
	FirstName         *string `json:"first_name"`
	DateOfBirth       *string `json:"date_of_birth"`
	ProfilePictureURL *string `json:"profile_picture_url"`
}

// @Summary Get own profile
// @Tags profile
// @Success 200 {object} map[string]any
// @Router /api/v1/profile [get]
func (h *ProfileHandler) get(c *gin.Context) {
	item, err := h.Profiles.Get(c.Request.Context(), auth.UserID(c))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "profile not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Create or update own profile
// @Tags profile
// @Param body body putProfileRequest true "profile fields"
// @Success 200 {object} map[string]any
// @Router /api/v1/profile [put]
func (h *ProfileHandler) put(c *gin.Context) {
	var req putProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	update := service.ProfileUpdate{
		FirstName:         req.FirstName,
		ProfilePictureURL: req.ProfilePictureURL,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			Error(c, http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD", nil)
			return
		}
		update.DateOfBirth = &dob
	}
	item, err := h.Profiles.Upsert(c.Request.Context(), auth.UserID(c), update)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}
