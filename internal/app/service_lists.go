package app

import (
	"context"
	"fmt"
	"log"

	"sharelist/api/internal/activity"
	"sharelist/api/internal/rbac"
	"sharelist/api/internal/search"
	"sharelist/api/internal/store"
)

type ListInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

// ListPatch carries only the fields the client supplied.
type ListPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	IsArchived  *bool   `json:"is_archived"`
}

func (s *Service) CreateList(ctx context.Context, actorID int64, input ListInput) (ListView, error) {
	name, err := requireName("name", input.Name, maxNameLen)
	if err != nil {
		return ListView{}, err
	}
	color, err := colorOrDefault("color", input.Color, defaultListColor)
	if err != nil {
		return ListView{}, err
	}

	var created store.List
	err = s.audited(ctx, func(ctx context.Context, tx *txScope) error {
		list, err := tx.q.InsertList(ctx, store.List{
			Name:        name,
			Description: optionalText(input.Description),
			Color:       color,
			OwnerID:     actorID,
		})
		if err != nil {
			return err
		}
		created = list
		tx.after(func(context.Context) { s.indexList(list) })
		return tx.record(ctx, activity.ListCreated(actorID, list))
	})
	if err != nil {
		return ListView{}, err
	}
	return listView(created, 0, rbac.LevelOwner), nil
}

func (s *Service) GetList(ctx context.Context, actorID, listID int64) (ListView, error) {
	gate := s.gate()
	list, err := gate.RequireView(ctx, listID, actorID)
	if err != nil {
		return ListView{}, err
	}
	level, err := gate.Resolve(ctx, list, actorID)
	if err != nil {
		return ListView{}, err
	}
	count, err := s.store.CountTasks(ctx, list.ID)
	if err != nil {
		return ListView{}, err
	}
	return listView(list, count, level), nil
}

// ListLists is every list the actor owns or has been granted, newest first.
func (s *Service) ListLists(ctx context.Context, actorID int64, skip, limit int) (Page[ListView], error) {
	skip, limit = pageBounds(skip, limit)
	summaries, total, err := s.store.ListAccessibleLists(ctx, actorID, skip, limit)
	if err != nil {
		return Page[ListView]{}, err
	}
	items := make([]ListView, 0, len(summaries))
	for _, summary := range summaries {
		level := rbac.Resolve(summary.OwnerID, actorID, summary.GrantLevel)
		items = append(items, listView(summary.List, summary.TodoCount, level))
	}
	return Page[ListView]{Total: total, Items: items}, nil
}

// UpdateList applies patch. Only fields whose value actually changes are
// logged, and an update that changes nothing records no activity.
func (s *Service) UpdateList(ctx context.Context, actorID, listID int64, patch ListPatch) (ListView, error) {
	var (
		result store.List
		count  int
	)
	err := s.audited(ctx, func(ctx context.Context, tx *txScope) error {
		list, err := tx.gate.RequireOwnership(ctx, listID, actorID)
		if err != nil {
			return err
		}

		changes := activity.Changes{}
		next := list
		if patch.Name != nil {
			name, err := requireName("name", *patch.Name, maxNameLen)
			if err != nil {
				return err
			}
			activity.Track(changes, "name", list.Name, name)
			next.Name = name
		}
		if patch.Description != nil {
			next.Description = optionalText(patch.Description)
			activity.TrackOptional(changes, "description", list.Description, next.Description)
		}
		if patch.Color != nil {
			color, err := validColor("color", *patch.Color)
			if err != nil {
				return err
			}
			activity.Track(changes, "color", list.Color, color)
			next.Color = color
		}
		if patch.IsArchived != nil {
			activity.Track(changes, "is_archived", list.IsArchived, *patch.IsArchived)
			next.IsArchived = *patch.IsArchived
		}

		if count, err = tx.q.CountTasks(ctx, list.ID); err != nil {
			return err
		}
		if len(changes) == 0 {
			result = list
			return nil
		}

		updated, err := tx.q.UpdateList(ctx, next)
		if err != nil {
			return err
		}
		result = updated
		tx.after(func(context.Context) { s.indexList(updated) })
		return tx.record(ctx, activity.ListUpdated(actorID, updated, changes))
	})
	if err != nil {
		return ListView{}, err
	}
	return listView(result, count, rbac.LevelOwner), nil
}

// DeleteList records the deletion first, snapshots the list's complete feed,
// then removes tasks, grants and the list. The feed rows go with the list;
// the snapshot is archived after commit.
func (s *Service) DeleteList(ctx context.Context, actorID, listID int64) error {
	return s.audited(ctx, func(ctx context.Context, tx *txScope) error {
		list, err := tx.gate.RequireOwnership(ctx, listID, actorID)
		if err != nil {
			return err
		}
		if err := tx.record(ctx, activity.ListDeleted(actorID, list)); err != nil {
			return err
		}

		feed, err := listFeedSnapshot(ctx, tx.q, list.ID)
		if err != nil {
			return err
		}
		tasks, _, err := tx.q.ListTasks(ctx, list.ID, 0, maxSnapshotTasks)
		if err != nil {
			return err
		}
		taskIDs := make([]int64, 0, len(tasks))
		for _, task := range tasks {
			taskIDs = append(taskIDs, task.ID)
		}

		if _, err := tx.q.DeleteTasksByList(ctx, list.ID); err != nil {
			return fmt.Errorf("delete list tasks: %w", err)
		}
		if _, err := tx.q.DeleteGrantsByList(ctx, list.ID); err != nil {
			return fmt.Errorf("delete list grants: %w", err)
		}
		if err := tx.q.DeleteList(ctx, list.ID); err != nil {
			return fmt.Errorf("delete list: %w", err)
		}

		tx.after(func(ctx context.Context) {
			if s.search != nil {
				s.search.DeleteList(list.ID, taskIDs)
			}
			s.archiveList(ctx, list, feed)
		})
		return nil
	})
}

const (
	snapshotPageSize = 100
	maxSnapshotTasks = 100000
)

// listFeedSnapshot reads every entry of a list's feed, newest first.
func listFeedSnapshot(ctx context.Context, reader activity.Reader, listID int64) ([]store.ActivityEntry, error) {
	var entries []store.ActivityEntry
	for skip := 0; ; skip += snapshotPageSize {
		page, err := activity.ListFeed(ctx, reader, listID, skip, snapshotPageSize)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page.Items...)
		if len(page.Items) < snapshotPageSize || len(entries) >= page.Total {
			return entries, nil
		}
	}
}

func (s *Service) archiveList(ctx context.Context, list store.List, feed []store.ActivityEntry) {
	if s.archiver == nil {
		return
	}
	key, err := s.archiver.ArchiveList(ctx, list, feed)
	if err != nil {
		log.Printf("archive: list %d: %v", list.ID, err)
		return
	}
	if key != "" {
		log.Printf("archive: list %d feed (%d entries) stored at %s", list.ID, len(feed), key)
	}
}

func (s *Service) indexList(list store.List) {
	if s.search == nil {
		return
	}
	rec := search.ListRecord{ID: list.ID, Name: list.Name, ListID: list.ID, OwnerID: list.OwnerID}
	if list.Description != nil {
		rec.Description = *list.Description
	}
	s.search.IndexList(rec)
}
