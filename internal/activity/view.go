package activity

import (
	"time"

	"sharelist/api/internal/store"
)

// EntryView is the wire form of a log entry, shared by the HTTP API and the
// realtime stream.
type EntryView struct {
	ID         int64          `json:"id"`
	UserID     int64          `json:"user_id"`
	Username   string         `json:"username,omitempty"`
	ListID     *int64         `json:"list_id"`
	TodoID     *int64         `json:"todo_id"`
	ActionType string         `json:"action_type"`
	EntityType string         `json:"entity_type"`
	EntityID   *int64         `json:"entity_id"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

func View(entry store.ActivityEntry) EntryView {
	return EntryView{
		ID:         entry.ID,
		UserID:     entry.ActorID,
		Username:   entry.ActorName,
		ListID:     entry.ListID,
		TodoID:     entry.TaskID,
		ActionType: entry.Action,
		EntityType: entry.Entity,
		EntityID:   entry.EntityID,
		Details:    entry.Details,
		CreatedAt:  entry.CreatedAt,
	}
}

func Views(entries []store.ActivityEntry) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		out = append(out, View(entry))
	}
	return out
}
