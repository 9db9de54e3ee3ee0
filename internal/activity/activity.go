// Package activity records and reads the append-only audit log.
//
// Record is always called with the transaction handle of the mutation it
// describes, so the mutation and its log entry commit or roll back together.
package activity

import (
	"context"
	"fmt"

	"sharelist/api/internal/store"
)

type Action string

const (
	ActionCreated           Action = "created"
	ActionUpdated           Action = "updated"
	ActionStatusChanged     Action = "status_changed"
	ActionDeleted           Action = "deleted"
	ActionShared            Action = "shared"
	ActionPermissionChanged Action = "permission_changed"
	ActionUnshared          Action = "unshared"
)

type Entity string

const (
	EntityList       Entity = "list"
	EntityTodo       Entity = "todo"
	EntityPermission Entity = "permission"
	EntityTag        Entity = "tag"
)

// Event is an entry about to be appended.
type Event struct {
	ActorID  int64
	Action   Action
	Entity   Entity
	EntityID *int64
	ListID   *int64
	TaskID   *int64
	Details  map[string]any
}

type Appender interface {
	InsertActivity(ctx context.Context, entry store.ActivityEntry) (store.ActivityEntry, error)
}

type Reader interface {
	ListActivity(ctx context.Context, filter store.ActivityFilter) ([]store.ActivityEntry, int, error)
}

// Record appends ev. Empty details are stored as NULL.
func Record(ctx context.Context, appender Appender, ev Event) (store.ActivityEntry, error) {
	if ev.ActorID == 0 {
		return store.ActivityEntry{}, fmt.Errorf("record %s %s: missing actor", ev.Action, ev.Entity)
	}
	details := ev.Details
	if len(details) == 0 {
		details = nil
	}
	entry, err := appender.InsertActivity(ctx, store.ActivityEntry{
		ActorID:  ev.ActorID,
		Action:   string(ev.Action),
		Entity:   string(ev.Entity),
		EntityID: ev.EntityID,
		ListID:   ev.ListID,
		TaskID:   ev.TaskID,
		Details:  details,
	})
	if err != nil {
		return store.ActivityEntry{}, fmt.Errorf("record %s %s: %w", ev.Action, ev.Entity, err)
	}
	return entry, nil
}

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

type Filter struct {
	ActorID *int64
	ListID  *int64
	Skip    int
	Limit   int
}

type Page struct {
	Total int
	Items []store.ActivityEntry
}

func (f Filter) normalized() Filter {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

// Feed returns one page of entries, newest first.
func Feed(ctx context.Context, reader Reader, filter Filter) (Page, error) {
	filter = filter.normalized()
	items, total, err := reader.ListActivity(ctx, store.ActivityFilter{
		ActorID: filter.ActorID,
		ListID:  filter.ListID,
		Skip:    filter.Skip,
		Limit:   filter.Limit,
	})
	if err != nil {
		return Page{}, fmt.Errorf("read activity feed: %w", err)
	}
	return Page{Total: total, Items: items}, nil
}

// ListFeed is every entry tied to listID. Callers check view access first.
func ListFeed(ctx context.Context, reader Reader, listID int64, skip, limit int) (Page, error) {
	return Feed(ctx, reader, Filter{ListID: &listID, Skip: skip, Limit: limit})
}

// UserFeed is every entry userID performed.
func UserFeed(ctx context.Context, reader Reader, userID int64, skip, limit int) (Page, error) {
	return Feed(ctx, reader, Filter{ActorID: &userID, Skip: skip, Limit: limit})
}

func GlobalFeed(ctx context.Context, reader Reader, filter Filter) (Page, error) {
	return Feed(ctx, reader, filter)
}

// Publisher fans committed entries out to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, entry store.ActivityEntry) error
}

// Archiver keeps a copy of a deleted list's feed after the database
// cascade has removed it.
type Archiver interface {
	ArchiveList(ctx context.Context, list store.List, entries []store.ActivityEntry) (string, error)
}
