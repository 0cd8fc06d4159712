package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signalapp/internal/auth"
	"signalapp/internal/service"
)

type PresenceHandler struct {
	Presence *service.PresenceService
	Matcher  *service.MatcherService
	Logger   *zap.Logger
}

func (h *PresenceHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.GET("/presence", h.getPresence)
	group.PUT("/presence", h.setPresence)
	group.POST("/presence/heartbeat", h.heartbeat)
	group.GET("/nearby", h.nearby)
}

type setPresenceRequest struct {
	IsOpen bool     `json:"is_open"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
}

// @Summary Get own presence
// @Tags presence
// @Success 200 {object} map[string]any
// @Router /api/v1/presence [get]
func (h *PresenceHandler) getPresence(c *gin.Context) {
	item, err := h.Presence.Get(c.Request.Context(), auth.UserID(c))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Upsert own presence (visibility toggle / location refresh)
// @Tags presence
// @Param body body setPresenceRequest true "presence state"
// @Success 200 {object} map[string]any
// @Router /api/v1/presence [put]
func (h *PresenceHandler) setPresence(c *gin.Context) {
	var req setPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	item, err := h.Presence.Set(c.Request.Context(), auth.UserID(c), req.IsOpen, req.Lat, req.Lng)
	if err != nil {
		if errors.Is(err, service.ErrPartialCoordinates) {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Heartbeat: re-stamp presence freshness
// @Tags presence
// @Success 200 {object} map[string]any
// @Router /api/v1/presence/heartbeat [post]
func (h *PresenceHandler) heartbeat(c *gin.Context) {
	item, err := h.Presence.Heartbeat(c.Request.Context(), auth.UserID(c))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary List nearby open users, nearest first
// @Tags presence
// @Param lat query number true "caller latitude"
// @Param lng query number true "caller longitude"
// @Success 200 {object} map[string]any
// @Router /api/v1/nearby [get]
func (h *PresenceHandler) nearby(c *gin.Context) {
	lat, latErr := floatQuery(c, "lat")
	lng, lngErr := floatQuery(c, "lng")
	if latErr != nil || lngErr != nil {
		Error(c, http.StatusBadRequest, "lat and lng query parameters are required", nil)
		return
	}
	items, err := h.Matcher.FindNearby(c.Request.Context(), auth.UserID(c), lat, lng)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func floatQuery(c *gin.Context, key string) (float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, errors.New("missing " + key)
	}
	return strconv.ParseFloat(raw, 64)
}
