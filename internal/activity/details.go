package activity

import (
	"time"

	"sharelist/api/internal/rbac"
	"sharelist/api/internal/store"
)

// Change is the before and after value of one field.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Changes collects the fields an update actually changed.
type Changes map[string]Change

// Track records field only when old and new differ.
func Track[T comparable](c Changes, field string, old, new T) {
	if old != new {
		c[field] = Change{Old: old, New: new}
	}
}

// TrackOptional compares nullable values by content. A nil side is recorded
// as JSON null.
func TrackOptional[T comparable](c Changes, field string, old, new *T) {
	switch {
	case old == nil && new == nil:
		return
	case old != nil && new != nil && *old == *new:
		return
	}
	c[field] = Change{Old: valueOrNil(old), New: valueOrNil(new)}
}

// TrackDate compares calendar dates and records them as YYYY-MM-DD.
func TrackDate(c Changes, field string, old, new time.Time) {
	Track(c, field, old.Format(time.DateOnly), new.Format(time.DateOnly))
}

func valueOrNil[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func ref(id int64) *int64 {
	return &id
}

func ListCreated(actorID int64, list store.List) Event {
	return Event{
		ActorID: actorID, Action: ActionCreated, Entity: EntityList,
		EntityID: ref(list.ID), ListID: ref(list.ID),
		Details: map[string]any{"name": list.Name},
	}
}

func ListUpdated(actorID int64, list store.List, changes Changes) Event {
	return Event{
		ActorID: actorID, Action: ActionUpdated, Entity: EntityList,
		EntityID: ref(list.ID), ListID: ref(list.ID),
		Details: map[string]any{"name": list.Name, "changes": map[string]Change(changes)},
	}
}

func ListDeleted(actorID int64, list store.List) Event {
	return Event{
		ActorID: actorID, Action: ActionDeleted, Entity: EntityList,
		EntityID: ref(list.ID), ListID: ref(list.ID),
		Details: map[string]any{"name": list.Name},
	}
}

func taskEvent(actorID int64, action Action, task store.Task, details map[string]any) Event {
	return Event{
		ActorID: actorID, Action: action, Entity: EntityTodo,
		EntityID: ref(task.ID), ListID: ref(task.ListID), TaskID: ref(task.ID),
		Details: details,
	}
}

func TaskCreated(actorID int64, task store.Task) Event {
	return taskEvent(actorID, ActionCreated, task, map[string]any{"name": task.Name})
}

func TaskUpdated(actorID int64, task store.Task, changes Changes) Event {
	return taskEvent(actorID, ActionUpdated, task, map[string]any{"name": task.Name, "changes": map[string]Change(changes)})
}

// TaskStatusChanged replaces TaskUpdated whenever the status moved, even if
// other fields changed in the same update.
func TaskStatusChanged(actorID int64, task store.Task, oldStatus store.TaskStatus) Event {
	return taskEvent(actorID, ActionStatusChanged, task, map[string]any{
		"name":       task.Name,
		"old_status": string(oldStatus),
		"new_status": string(task.Status),
	})
}

func TaskDeleted(actorID int64, task store.Task) Event {
	return taskEvent(actorID, ActionDeleted, task, map[string]any{"name": task.Name})
}

// Shared is the first grant of a list to a user. The entity is the grantee.
func Shared(actorID int64, list store.List, targetUserID int64, level rbac.GrantLevel) Event {
	return Event{
		ActorID: actorID, Action: ActionShared, Entity: EntityPermission,
		EntityID: ref(targetUserID), ListID: ref(list.ID),
		Details: map[string]any{
			"list_name":           list.Name,
			"shared_with_user_id": targetUserID,
			"permission_level":    string(level),
		},
	}
}

func PermissionChanged(actorID int64, list store.List, targetUserID int64, oldLevel, newLevel rbac.GrantLevel) Event {
	return Event{
		ActorID: actorID, Action: ActionPermissionChanged, Entity: EntityPermission,
		EntityID: ref(targetUserID), ListID: ref(list.ID),
		Details: map[string]any{
			"list_name":      list.Name,
			"target_user_id": targetUserID,
			"old_permission": string(oldLevel),
			"new_permission": string(newLevel),
		},
	}
}

func Unshared(actorID int64, list store.List, targetUserID int64, oldLevel rbac.GrantLevel) Event {
	return Event{
		ActorID: actorID, Action: ActionUnshared, Entity: EntityPermission,
		EntityID: ref(targetUserID), ListID: ref(list.ID),
		Details: map[string]any{
			"list_name":      list.Name,
			"target_user_id": targetUserID,
			"old_permission": string(oldLevel),
		},
	}
}

// TagEvent covers tag create, rename and delete. Tags belong to no list.
func TagEvent(actorID int64, action Action, tag store.Tag) Event {
	return Event{
		ActorID: actorID, Action: action, Entity: EntityTag,
		EntityID: ref(tag.ID),
		Details:  map[string]any{"name": tag.Name},
	}
}
