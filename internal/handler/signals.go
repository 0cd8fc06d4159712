package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signalapp/internal/auth"
	"signalapp/internal/service"
)

type SignalHandler struct {
	Signals *service.SignalService
	Logger  *zap.Logger
}

func (h *SignalHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/signals")
	group.POST("", h.create)
	group.POST("/:id/respond", h.respond)
	group.POST("/:id/cancel", h.cancel)
	group.POST("/expire", h.expire)
	group.GET("/incoming", h.incoming)
	group.GET("/outgoing", h.outgoing)
}

type createSignalRequest struct {
	RecipientID string  `json:"recipient_id" binding:"required"`
	Message     *string `json:"message"`
}

type respondRequest struct {
	Response string `json:"response" binding:"required"`
}

// @Summary Send a signal to another user
// @Tags signals
// @Param body body createSignalRequest true "recipient and optional message"
// @Success 200 {object} map[string]any
// @Router /api/v1/signals [post]
func (h *SignalHandler) create(c *gin.Context) {
	var req createSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	item, err := h.Signals.Create(c.Request.Context(), auth.UserID(c), req.RecipientID, req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary Respond to an incoming signal (accepted or ignored)
// @Tags signals
// @Param id path string true "signal id"
// @Param body body respondRequest true "response"
// @Success 200 {object} map[string]any
// @Router /api/v1/signals/{id}/respond [post]
func (h *SignalHandler) respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	item, err := h.Signals.Respond(c.Request.Context(), c.Param("id"), auth.UserID(c), req.Response)
	if err != nil {
		h.writeError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary Cancel an own outgoing pending signal
// @Tags signals
// @Param id path string true "signal id"
// @Success 200 {object} map[string]any
// @Router /api/v1/signals/{id}/cancel [post]
func (h *SignalHandler) cancel(c *gin.Context) {
	item, err := h.Signals.Cancel(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary Expire overdue pending signals now
// @Tags signals
// @Success 200 {object} map[string]any
// @Router /api/v1/signals/expire [post]
func (h *SignalHandler) expire(c *gin.Context) {
	n, err := h.Signals.ExpireDue(c.Request.Context(), time.Now().UTC())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"expired": n}, nil)
}

// @Summary List incoming pending signals within the inbox window
// @Tags signals
// @Success 200 {object} map[string]any
// @Router /api/v1/signals/incoming [get]
func (h *SignalHandler) incoming(c *gin.Context) {
	items, err := h.Signals.Incoming(c.Request.Context(), auth.UserID(c))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

// @Summary List own outgoing non-expired signals, newest first
// @Tags signals
// @Success 200 {object} map[string]any
// @Router /api/v1/signals/outgoing [get]
func (h *SignalHandler) outgoing(c *gin.Context) {
	items, err := h.Signals.Outgoing(c.Request.Context(), auth.UserID(c))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *SignalHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSelfSignal),
		errors.Is(err, service.ErrInvalidResponse):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrUnknownRecipient),
		errors.Is(err, service.ErrSignalNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrNotRecipient),
		errors.Is(err, service.ErrNotSender):
		Error(c, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, service.ErrAlreadyResolved):
		Error(c, http.StatusConflict, err.Error(), nil)
	default:
		if h.Logger != nil {
			h.Logger.Warn("signal operation failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}
