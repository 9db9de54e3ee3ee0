package app

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strconv"

	"sharelist/api/internal/activity"
	"sharelist/api/internal/search"
	"sharelist/api/internal/store"
)

type TaskInput struct {
	Name        string             `json:"name"`
	Description *string            `json:"description"`
	DueDate     string             `json:"due_date"`
	Status      store.TaskStatus   `json:"status"`
	Priority    store.TaskPriority `json:"priority"`
	TagIDs      []int64            `json:"tag_ids"`
}

// TaskPatch carries only the fields the client supplied. A non-nil TagIDs
// replaces the actor's tags on the task.
type TaskPatch struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	DueDate     *string             `json:"due_date"`
	Status      *store.TaskStatus   `json:"status"`
	Priority    *store.TaskPriority `json:"priority"`
	TagIDs      *[]int64            `json:"tag_ids"`
}

func validStatus(status store.TaskStatus) error {
	if !status.Valid() {
		return validationError("status", "status must be one of Not Started, In Progress, Completed")
	}
	return nil
}

func validPriority(priority store.TaskPriority) error {
	if !priority.Valid() {
		return validationError("priority", "priority must be one of Highest, High, Medium, Low, Lowest")
	}
	return nil
}

// loadTask fetches a task of listID. A task on another list is not found.
func loadTask(ctx context.Context, q store.Querier, listID, taskID int64) (store.Task, error) {
	task, err := q.GetTask(ctx, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Task{}, notFound("Todo")
	}
	if err != nil {
		return store.Task{}, err
	}
	if task.ListID != listID {
		return store.Task{}, notFound("Todo")
	}
	return task, nil
}

func (s *Service) ListTasks(ctx context.Context, actorID, listID int64, skip, limit int) (Page[TaskView], error) {
	if _, err := s.gate().RequireView(ctx, listID, actorID); err != nil {
		return Page[TaskView]{}, err
	}
	skip, limit = pageBounds(skip, limit)
	tasks, total, err := s.store.ListTasks(ctx, listID, skip, limit)
	if err != nil {
		return Page[TaskView]{}, err
	}
	items := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, taskView(task))
	}
	return Page[TaskView]{Total: total, Items: items}, nil
}

func (s *Service) GetTask(ctx context.Context, actorID, listID, taskID int64) (TaskView, error) {
	if _, err := s.gate().RequireView(ctx, listID, actorID); err != nil {
		return TaskView{}, err
	}
	task, err := loadTask(ctx, s.store, listID, taskID)
	if err != nil {
		return TaskView{}, err
	}
	return taskView(task), nil
}

func (s *Service) CreateTask(ctx context.Context, actorID, listID int64, input TaskInput) (TaskView, error) {
	name, err := requireName("name", input.Name, maxNameLen)
	if err != nil {
		return TaskView{}, err
	}
	dueDate, err := parseDueDate(input.DueDate)
	if err != nil {
		return TaskView{}, err
	}
	status := input.Status
	if status == "" {
		status = store.StatusNotStarted
	}
	if err := validStatus(status); err != nil {
		return TaskView{}, err
	}
	priority := input.Priority
	if priority == "" {
		priority = store.PriorityMedium
	}
	if err := validPriority(priority); err != nil {
		return TaskView{}, err
	}

	var created store.Task
	err = s.audited(ctx, func(ctx context.Context, tx *txScope) error {
		if _, err := tx.gate.RequireUpdate(ctx, listID, actorID); err != nil {
			return err
		}
		task := store.Task{
			ListID:      listID,
			Name:        name,
			Description: optionalText(input.Description),
			DueDate:     dueDate,
			Status:      status,
			Priority:    priority,
			CreatedBy:   actorID,
		}
		if status == store.StatusCompleted {
			completedAt := s.now().UTC()
			task.CompletedAt = &completedAt
		}
		inserted, err := tx.q.InsertTask(ctx, task)
		if err != nil {
			return err
		}
		if len(input.TagIDs) > 0 {
			if err := tx.q.SetTaskTags(ctx, inserted.ID, actorID, input.TagIDs); err != nil {
				return err
			}
			if inserted, err = tx.q.GetTask(ctx, inserted.ID); err != nil {
				return err
			}
		}
		created = inserted
		tx.after(func(context.Context) { s.indexTask(inserted) })
		return tx.record(ctx, activity.TaskCreated(actorID, inserted))
	})
	if err != nil {
		return TaskView{}, err
	}
	return taskView(created), nil
}

// UpdateTask applies patch. A status change is logged as a single
// status_changed entry even when other fields changed too; otherwise an
// updated entry lists the changed fields. An update that changes nothing
// records no activity.
func (s *Service) UpdateTask(ctx context.Context, actorID, listID, taskID int64, patch TaskPatch) (TaskView, error) {
	var result store.Task
	err := s.audited(ctx, func(ctx context.Context, tx *txScope) error {
		if _, err := tx.gate.RequireUpdate(ctx, listID, actorID); err != nil {
			return err
		}
		task, err := loadTask(ctx, tx.q, listID, taskID)
		if err != nil {
			return err
		}

		changes := activity.Changes{}
		next := task
		if patch.Name != nil {
			name, err := requireName("name", *patch.Name, maxNameLen)
			if err != nil {
				return err
			}
			activity.Track(changes, "name", task.Name, name)
			next.Name = name
		}
		if patch.Description != nil {
			next.Description = optionalText(patch.Description)
			activity.TrackOptional(changes, "description", task.Description, next.Description)
		}
		if patch.DueDate != nil {
			dueDate, err := parseDueDate(*patch.DueDate)
			if err != nil {
				return err
			}
			activity.TrackDate(changes, "due_date", task.DueDate, dueDate)
			next.DueDate = dueDate
		}
		if patch.Priority != nil {
			if err := validPriority(*patch.Priority); err != nil {
				return err
			}
			activity.Track(changes, "priority", string(task.Priority), string(*patch.Priority))
			next.Priority = *patch.Priority
		}
		statusChanged := false
		if patch.Status != nil {
			if err := validStatus(*patch.Status); err != nil {
				return err
			}
			if *patch.Status != task.Status {
				statusChanged = true
				next.Status = *patch.Status
				if next.Status == store.StatusCompleted {
					completedAt := s.now().UTC()
					next.CompletedAt = &completedAt
				} else {
					next.CompletedAt = nil
				}
			}
		}

		tags := task.Tags
		if patch.TagIDs != nil {
			if err := tx.q.SetTaskTags(ctx, task.ID, actorID, *patch.TagIDs); err != nil {
				return err
			}
			reloaded, err := tx.q.GetTask(ctx, task.ID)
			if err != nil {
				return err
			}
			tags = reloaded.Tags
			activity.Track(changes, "tag_ids", tagIDList(task.Tags), tagIDList(tags))
		}

		if !statusChanged && len(changes) == 0 {
			result = task
			return nil
		}

		updated, err := tx.q.UpdateTask(ctx, next)
		if err != nil {
			return err
		}
		updated.Tags = tags
		result = updated
		tx.after(func(context.Context) { s.indexTask(updated) })

		if statusChanged {
			return tx.record(ctx, activity.TaskStatusChanged(actorID, updated, task.Status))
		}
		return tx.record(ctx, activity.TaskUpdated(actorID, updated, changes))
	})
	if err != nil {
		return TaskView{}, err
	}
	return taskView(result), nil
}

// tagIDList renders tag ids as a comparable string such as "1,4,9".
func tagIDList(tags []store.Tag) string {
	ids := make([]int64, 0, len(tags))
	for _, tag := range tags {
		ids = append(ids, tag.ID)
	}
	slices.Sort(ids)
	out := make([]byte, 0, len(ids)*4)
	for i, id := range ids {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendInt(out, id, 10)
	}
	return string(out)
}

// DeleteTask records the deletion before removing the row; the entry's
// task reference is then cleared by the foreign key.
func (s *Service) DeleteTask(ctx context.Context, actorID, listID, taskID int64) error {
	return s.audited(ctx, func(ctx context.Context, tx *txScope) error {
		if _, err := tx.gate.RequireUpdate(ctx, listID, actorID); err != nil {
			return err
		}
		task, err := loadTask(ctx, tx.q, listID, taskID)
		if err != nil {
			return err
		}
		if err := tx.record(ctx, activity.TaskDeleted(actorID, task)); err != nil {
			return err
		}
		if err := tx.q.DeleteTask(ctx, task.ID); err != nil {
			return err
		}
		tx.after(func(context.Context) {
			if s.search != nil {
				s.search.DeleteTask(task.ID)
			}
		})
		return nil
	})
}

func (s *Service) indexTask(task store.Task) {
	if s.search == nil {
		return
	}
	rec := search.TaskRecord{
		ID:       task.ID,
		Name:     task.Name,
		ListID:   task.ListID,
		Status:   string(task.Status),
		Priority: string(task.Priority),
	}
	if task.Description != nil {
		rec.Description = *task.Description
	}
	s.search.IndexTask(rec)
}
