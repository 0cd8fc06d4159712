package realtime

import (
	"encoding/json"
	"time"

	"signalapp/internal/models"
)

// Event is one row change as seen by the feed. UserIDs names the parties the
// event concerns; an empty list means table-wide broadcast, which is how
// presence changes propagate (any open client may need to recompute nearby).
type Event struct {
	Table     string          `json:"table"`
	Type      string          `json:"event_type"`
	RowID     string          `json:"row_id"`
	UserIDs   []string        `json:"user_ids,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Filter selects the events a subscriber receives. Zero-value Tables means
// all tables. UserID is required: targeted events are delivered only to the
// parties they name.
type Filter struct {
	UserID string
	Tables []string
}

// FromOutbox rebuilds a feed event from its persisted outbox row, used when a
// reconnecting subscriber asks to replay from a known event id.
func FromOutbox(item models.ChangeEvent) Event {
	ev := Event{
		Table:     item.Table,
		Type:      item.EventType,
		RowID:     item.RowID,
		Payload:   json.RawMessage(item.Payload),
		CreatedAt: item.CreatedAt,
	}
	if len(item.Recipients) > 0 {
		_ = json.Unmarshal(item.Recipients, &ev.UserIDs)
	}
	return ev
}

func (f Filter) Matches(ev Event) bool {
	if len(f.Tables) > 0 {
		found := false
		for _, t := range f.Tables {
			if t == ev.Table {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(ev.UserIDs) == 0 {
		return true
	}
	for _, id := range ev.UserIDs {
		if id == f.UserID {
			return true
		}
	}
	return false
}
