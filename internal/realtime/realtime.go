// Package realtime fans committed activity out to clients watching a list.
//
// Every entry tied to a list produces an "activity:new" message. Task
// entries additionally produce "todo:<action>" so clients can refresh the
// affected task without parsing the entry.
package realtime

import (
	"encoding/json"
	"fmt"

	"sharelist/api/internal/activity"
	"sharelist/api/internal/store"
)

const EventActivityNew = "activity:new"

type Message struct {
	Event  string          `json:"event"`
	ListID int64           `json:"list_id"`
	Data   json.RawMessage `json:"data"`
}

// Subscription delivers messages for one list until Close is called.
type Subscription struct {
	C     <-chan Message
	close func() error
}

func (s *Subscription) Close() error {
	return s.close()
}

// Messages builds the messages an entry produces. Entries without a list,
// such as tag events, produce none.
func Messages(entry store.ActivityEntry) ([]Message, error) {
	if entry.ListID == nil {
		return nil, nil
	}
	data, err := json.Marshal(activity.View(entry))
	if err != nil {
		return nil, fmt.Errorf("marshal activity entry %d: %w", entry.ID, err)
	}

	listID := *entry.ListID
	out := []Message{{Event: EventActivityNew, ListID: listID, Data: data}}
	if entry.Entity == string(activity.EntityTodo) {
		out = append(out, Message{Event: "todo:" + todoEvent(entry.Action), ListID: listID, Data: data})
	}
	return out, nil
}

// todoEvent folds status changes into "updated"; clients re-fetch the task
// either way.
func todoEvent(action string) string {
	if action == string(activity.ActionStatusChanged) {
		return string(activity.ActionUpdated)
	}
	return action
}
