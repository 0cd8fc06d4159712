package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"signalapp/internal/models"
	"signalapp/internal/repository"
)

// Hub is the single dispatcher behind the realtime feed. Every successful
// presence/signal mutation is published here; the hub appends it to the
// change-event outbox and fans it out to websocket subscribers. With a Redis
// client configured, events travel through pub/sub instead of being
// dispatched directly, so every server instance (including the publisher)
// sees the same stream.
type Hub struct {
	repo   repository.Repository
	redis  *redis.Client
	chName string
	logger *zap.Logger
	buf    int

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscriber

	dropped uint64
}

type subscriber struct {
	ch     chan Event
	filter Filter
}

// Subscription is a live feed handle; Cancel must be called on teardown or
// the subscriber slot leaks.
type Subscription struct {
	C      <-chan Event
	Cancel func()
}

func NewHub(repo repository.Repository, rdb *redis.Client, channel string, buf int, logger *zap.Logger) *Hub {
	if buf <= 0 {
		buf = 16
	}
	if channel == "" {
		channel = "signalapp:events"
	}
	return &Hub{
		repo:   repo,
		redis:  rdb,
		chName: channel,
		logger: logger,
		buf:    buf,
		subs:   map[uint64]*subscriber{},
	}
}

// Publish records the event in the outbox and hands it to every matching
// subscriber. Outbox or backplane failures are logged, not propagated: the
// mutation that triggered the event has already committed.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	if h == nil {
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if h.repo != nil {
		item := &models.ChangeEvent{
			Table:     ev.Table,
			EventType: ev.Type,
			RowID:     ev.RowID,
			Payload:   datatypes.JSON(ev.Payload),
			CreatedAt: ev.CreatedAt,
		}
		if len(ev.UserIDs) > 0 {
			if recipients, err := json.Marshal(ev.UserIDs); err == nil {
				item.Recipients = datatypes.JSON(recipients)
			}
		}
		if err := h.repo.InsertChangeEvent(ctx, item); err != nil && h.logger != nil {
			h.logger.Warn("change event outbox write failed", zap.Error(err))
		}
	}
	if h.redis != nil {
		payload, err := json.Marshal(ev)
		if err == nil {
			err = h.redis.Publish(ctx, h.chName, payload).Err()
		}
		if err != nil {
			if h.logger != nil {
				h.logger.Warn("realtime backplane publish failed", zap.Error(err))
			}
			// Fall back to local dispatch so this instance's clients still
			// hear about the change.
			h.dispatch(ev)
		}
		return
	}
	h.dispatch(ev)
}

// Subscribe registers a filtered feed. Slow consumers are dropped-from, never
// blocked-on.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	ch := make(chan Event, h.buf)
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = &subscriber{ch: ch, filter: filter}
	h.mu.Unlock()

	return &Subscription{
		C: ch,
		Cancel: func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		},
	}
}

// Run services the Redis backplane subscription and periodic stats. It is a
// no-op loop when no backplane is configured.
func (h *Hub) Run(ctx context.Context) error {
	if h == nil {
		return nil
	}
	statsTicker := time.NewTicker(60 * time.Second)
	defer statsTicker.Stop()

	var msgs <-chan *redis.Message
	if h.redis != nil {
		sub := h.redis.Subscribe(ctx, h.chName)
		defer sub.Close()
		msgs = sub.Channel()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-statsTicker.C:
			if d := atomic.LoadUint64(&h.dropped); d > 0 && h.logger != nil {
				h.logger.Info("realtime hub stats", zap.Uint64("dropped", d))
			}
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("realtime backplane subscription closed")
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				if h.logger != nil {
					h.logger.Warn("realtime backplane payload invalid", zap.Error(err))
				}
				continue
			}
			h.dispatch(ev)
		}
	}
}

func (h *Hub) dispatch(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.filter.Matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}
