package signalapi

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// FeedEvent is one change delivered over the realtime websocket.
type FeedEvent struct {
	Table     string          `json:"table"`
	Type      string          `json:"event_type"`
	RowID     string          `json:"row_id"`
	UserIDs   []string        `json:"user_ids,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Stream maintains the websocket feed with reconnection. Every received event
// goes through the single OnEvent callback; consumers route on Table.
type Stream struct {
	BaseURL string
	Token   string
	Tables  []string
	Logger  *zap.Logger
	OnEvent func(FeedEvent)
}

// Run dials and re-dials the feed until the context is cancelled. Backoff
// between attempts grows to 30s with jitter so a fleet of clients does not
// reconnect in lockstep.
func (s *Stream) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := s.serveOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.Logger != nil {
				s.Logger.Warn("realtime stream disconnected", zap.Error(err))
			}
		}
		jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + jitter):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (s *Stream) serveOnce(ctx context.Context) error {
	wsURL, err := s.feedURL()
	if err != nil {
		return err
	}
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	if s.Logger != nil {
		s.Logger.Info("realtime stream connected")
	}
	for {
		var ev FeedEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return err
		}
		if s.OnEvent != nil {
			s.OnEvent(ev)
		}
	}
}

func (s *Stream) feedURL() (string, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("unsupported scheme: " + u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/realtime"
	q := u.Query()
	q.Set("token", s.Token)
	if len(s.Tables) > 0 {
		q.Set("tables", strings.Join(s.Tables, ","))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
