package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"signalapp/internal/auth"
	"signalapp/internal/realtime"
	"signalapp/internal/repository"
)

const replayBatchLimit = 500

// RealtimeHandler serves the websocket change feed. Clients pass an optional
// tables filter and an optional since event id; the handler replays outbox
// rows newer than since before switching to the live hub subscription.
type RealtimeHandler struct {
	Hub    *realtime.Hub
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *RealtimeHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/realtime", h.serve)
}

// @Summary Websocket change feed for presence and signal rows
// @Tags realtime
// @Param tables query string false "comma separated table filter"
// @Param since query integer false "replay outbox events after this id"
// @Router /api/v1/realtime [get]
func (h *RealtimeHandler) serve(c *gin.Context) {
	userID := auth.UserID(c)
	filter := realtime.Filter{UserID: userID}
	if raw := strings.TrimSpace(c.Query("tables")); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Tables = append(filter.Tables, t)
			}
		}
	}
	var sinceID uint64
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			Error(c, http.StatusBadRequest, "since must be a positive integer", nil)
			return
		}
		sinceID = parsed
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	ctx := c.Request.Context()

	// Subscribe before replay so nothing published in between is lost;
	// duplicates across the replay/live boundary are possible and clients
	// dedupe by row id.
	sub := h.Hub.Subscribe(filter)
	defer sub.Cancel()

	if sinceID > 0 {
		if err := h.replay(ctx, conn, filter, sinceID); err != nil {
			if h.Logger != nil {
				h.Logger.Warn("outbox replay failed", zap.String("user_id", userID), zap.Error(err))
			}
			conn.Close(websocket.StatusInternalError, "replay failed")
			return
		}
	}

	// Reads are only serviced to detect the peer going away.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutdown")
			return
		case <-readDone:
			return
		case ev := <-sub.C:
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *RealtimeHandler) replay(ctx context.Context, conn *websocket.Conn, filter realtime.Filter, sinceID uint64) error {
	for {
		rows, err := h.Repo.ListChangeEventsSince(ctx, sinceID, replayBatchLimit)
		if err != nil {
			return err
		}
		for _, row := range rows {
			sinceID = row.ID
			ev := realtime.FromOutbox(row)
			if !filter.Matches(ev) {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				return err
			}
		}
		if len(rows) < replayBatchLimit {
			return nil
		}
	}
}
