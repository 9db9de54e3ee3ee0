package app

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"sharelist/api/internal/rbac"
	"sharelist/api/internal/store"
)

// memStore is an in-memory dataStore for service tests. It follows the
// foreign keys of the real schema: activity rows go with their list, and a
// deleted task only clears the activity's task reference. Inserting an entry
// for a missing list or task fails like the constraint would.
type memStore struct {
	*memState
	clock *fakeClock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) tick() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type refreshRow struct {
	userID    int64
	expiresAt time.Time
	revoked   bool
}

type memState struct {
	clock    *fakeClock
	nextID   int64
	users    map[int64]store.User
	refresh  map[string]refreshRow
	revoked  map[string]time.Time
	lists    map[int64]store.List
	grants   map[int64]store.Grant
	tasks    map[int64]store.Task
	tags     map[int64]store.Tag
	taskTags map[int64][]int64
	activity []store.ActivityEntry
}

func newMemStore() *memStore {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return &memStore{
		clock: clock,
		memState: &memState{
			clock:    clock,
			users:    map[int64]store.User{},
			refresh:  map[string]refreshRow{},
			revoked:  map[string]time.Time{},
			lists:    map[int64]store.List{},
			grants:   map[int64]store.Grant{},
			tasks:    map[int64]store.Task{},
			tags:     map[int64]store.Tag{},
			taskTags: map[int64][]int64{},
		},
	}
}

func (m *memStore) Ping(context.Context) error { return nil }

// WithTx runs fn against a copy of the state and keeps the copy only when fn
// succeeds.
func (m *memStore) WithTx(_ context.Context, fn func(store.Querier) error) error {
	draft := m.memState.clone()
	if err := fn(draft); err != nil {
		return err
	}
	m.memState = draft
	return nil
}

func (s *memState) clone() *memState {
	out := &memState{
		clock:    s.clock,
		nextID:   s.nextID,
		users:    maps.Clone(s.users),
		refresh:  maps.Clone(s.refresh),
		revoked:  maps.Clone(s.revoked),
		lists:    maps.Clone(s.lists),
		grants:   maps.Clone(s.grants),
		tasks:    maps.Clone(s.tasks),
		tags:     maps.Clone(s.tags),
		taskTags: make(map[int64][]int64, len(s.taskTags)),
		activity: slices.Clone(s.activity),
	}
	for id, tagIDs := range s.taskTags {
		out.taskTags[id] = slices.Clone(tagIDs)
	}
	return out
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

func paginate[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := min(skip+limit, len(items))
	return items[skip:end]
}

func (s *memState) CreateUser(_ context.Context, user store.User) (store.User, error) {
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return store.User{}, fmt.Errorf("insert user: %w (users_email_key)", store.ErrConflict)
		}
		if existing.Username == user.Username {
			return store.User{}, fmt.Errorf("insert user: %w (users_username_key)", store.ErrConflict)
		}
	}
	user.ID = s.id()
	user.CreatedAt = s.clock.tick()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = user
	return user, nil
}

func (s *memState) GetUserByID(_ context.Context, id int64) (store.User, error) {
	user, ok := s.users[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (s *memState) GetUserByIdentifier(ctx context.Context, identifier string) (store.User, error) {
	if user, err := s.GetUserByUsername(ctx, identifier); err == nil {
		return user, nil
	}
	return s.GetUserByEmail(ctx, identifier)
}

func (s *memState) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (s *memState) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (s *memState) UpdateUser(_ context.Context, user store.User) (store.User, error) {
	existing, ok := s.users[user.ID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = s.clock.tick()
	s.users[user.ID] = user
	return user, nil
}

func (s *memState) SaveRefreshSession(_ context.Context, tokenHash string, userID int64, expiresAt time.Time) error {
	s.refresh[tokenHash] = refreshRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *memState) LookupRefreshSession(_ context.Context, tokenHash string) (store.User, error) {
	row, ok := s.refresh[tokenHash]
	if !ok || row.revoked || !row.expiresAt.After(s.clock.now) {
		return store.User{}, sql.ErrNoRows
	}
	user, ok := s.users[row.userID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (s *memState) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	if row, ok := s.refresh[tokenHash]; ok {
		row.revoked = true
		s.refresh[tokenHash] = row
	}
	return nil
}

func (s *memState) RevokeAccessToken(_ context.Context, jti string, expiresAt time.Time) error {
	s.revoked[jti] = expiresAt
	return nil
}

func (s *memState) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := s.revoked[jti]
	return ok, nil
}

func (s *memState) InsertList(_ context.Context, list store.List) (store.List, error) {
	if _, ok := s.users[list.OwnerID]; !ok {
		return store.List{}, fmt.Errorf("insert list: owner %d does not exist", list.OwnerID)
	}
	list.ID = s.id()
	list.CreatedAt = s.clock.tick()
	list.UpdatedAt = list.CreatedAt
	s.lists[list.ID] = list
	return list, nil
}

func (s *memState) GetList(_ context.Context, id int64) (store.List, error) {
	list, ok := s.lists[id]
	if !ok {
		return store.List{}, sql.ErrNoRows
	}
	return list, nil
}

func (s *memState) UpdateList(_ context.Context, list store.List) (store.List, error) {
	existing, ok := s.lists[list.ID]
	if !ok {
		return store.List{}, sql.ErrNoRows
	}
	list.OwnerID = existing.OwnerID
	list.CreatedAt = existing.CreatedAt
	list.UpdatedAt = s.clock.tick()
	s.lists[list.ID] = list
	return list, nil
}

func (s *memState) DeleteList(ctx context.Context, id int64) error {
	if _, ok := s.lists[id]; !ok {
		return sql.ErrNoRows
	}
	if _, err := s.DeleteTasksByList(ctx, id); err != nil {
		return err
	}
	if _, err := s.DeleteGrantsByList(ctx, id); err != nil {
		return err
	}
	s.activity = slices.DeleteFunc(s.activity, func(entry store.ActivityEntry) bool {
		return entry.ListID != nil && *entry.ListID == id
	})
	delete(s.lists, id)
	return nil
}

func (s *memState) grantFor(listID, userID int64) (store.Grant, bool) {
	for _, grant := range s.grants {
		if grant.ListID == listID && grant.UserID == userID {
			return grant, true
		}
	}
	return store.Grant{}, false
}

func (s *memState) ListAccessibleLists(_ context.Context, userID int64, skip, limit int) ([]store.ListSummary, int, error) {
	var all []store.ListSummary
	for _, list := range s.lists {
		grant, shared := s.grantFor(list.ID, userID)
		if list.OwnerID != userID && !shared {
			continue
		}
		summary := store.ListSummary{List: list, GrantLevel: grant.Level}
		summary.TodoCount, _ = s.CountTasks(context.Background(), list.ID)
		all = append(all, summary)
	}
	slices.SortFunc(all, func(a, b store.ListSummary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return paginate(all, skip, limit), len(all), nil
}

func (s *memState) AccessibleListIDs(_ context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	for _, list := range s.lists {
		if _, shared := s.grantFor(list.ID, userID); list.OwnerID == userID || shared {
			ids = append(ids, list.ID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *memState) CountTasks(_ context.Context, listID int64) (int, error) {
	count := 0
	for _, task := range s.tasks {
		if task.ListID == listID {
			count++
		}
	}
	return count, nil
}

func (s *memState) GetGrantLevel(_ context.Context, listID, userID int64) (rbac.GrantLevel, error) {
	grant, _ := s.grantFor(listID, userID)
	return grant.Level, nil
}

func (s *memState) GetGrant(_ context.Context, id int64) (store.Grant, error) {
	grant, ok := s.grants[id]
	if !ok {
		return store.Grant{}, sql.ErrNoRows
	}
	return grant, nil
}

func (s *memState) UpsertGrant(_ context.Context, grant store.Grant) (store.Grant, rbac.GrantLevel, error) {
	list, ok := s.lists[grant.ListID]
	if !ok {
		return store.Grant{}, "", fmt.Errorf("insert grant: list %d does not exist", grant.ListID)
	}
	if list.OwnerID == grant.UserID {
		return store.Grant{}, "", fmt.Errorf("insert grant: owner cannot hold a grant")
	}
	if existing, ok := s.grantFor(grant.ListID, grant.UserID); ok {
		previous := existing.Level
		existing.Level = grant.Level
		s.grants[existing.ID] = existing
		return existing, previous, nil
	}
	grant.ID = s.id()
	grant.GrantedAt = s.clock.tick()
	grant.Grantee = nil
	s.grants[grant.ID] = grant
	return grant, "", nil
}

func (s *memState) UpdateGrantLevel(_ context.Context, id int64, level rbac.GrantLevel) (store.Grant, error) {
	grant, ok := s.grants[id]
	if !ok {
		return store.Grant{}, sql.ErrNoRows
	}
	grant.Level = level
	s.grants[id] = grant
	return grant, nil
}

func (s *memState) DeleteGrant(_ context.Context, id int64) error {
	if _, ok := s.grants[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.grants, id)
	return nil
}

func (s *memState) DeleteGrantsByList(_ context.Context, listID int64) (int64, error) {
	var n int64
	for id, grant := range s.grants {
		if grant.ListID == listID {
			delete(s.grants, id)
			n++
		}
	}
	return n, nil
}

func (s *memState) ListGrants(_ context.Context, listID int64) ([]store.Grant, error) {
	out := []store.Grant{}
	for _, grant := range s.grants {
		if grant.ListID != listID {
			continue
		}
		grantee := s.users[grant.UserID]
		grant.Grantee = &grantee
		out = append(out, grant)
	}
	slices.SortFunc(out, func(a, b store.Grant) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *memState) withTags(task store.Task) store.Task {
	task.Tags = []store.Tag{}
	for _, tagID := range s.taskTags[task.ID] {
		task.Tags = append(task.Tags, s.tags[tagID])
	}
	slices.SortFunc(task.Tags, func(a, b store.Tag) int { return strings.Compare(a.Name, b.Name) })
	return task
}

func (s *memState) InsertTask(_ context.Context, task store.Task) (store.Task, error) {
	if _, ok := s.lists[task.ListID]; !ok {
		return store.Task{}, fmt.Errorf("insert task: list %d does not exist", task.ListID)
	}
	task.ID = s.id()
	task.CreatedAt = s.clock.tick()
	task.UpdatedAt = task.CreatedAt
	task.Tags = nil
	s.tasks[task.ID] = task
	return s.withTags(task), nil
}

func (s *memState) GetTask(_ context.Context, id int64) (store.Task, error) {
	task, ok := s.tasks[id]
	if !ok {
		return store.Task{}, sql.ErrNoRows
	}
	return s.withTags(task), nil
}

func (s *memState) ListTasks(_ context.Context, listID int64, skip, limit int) ([]store.Task, int, error) {
	var all []store.Task
	for _, task := range s.tasks {
		if task.ListID == listID {
			all = append(all, s.withTags(task))
		}
	}
	slices.SortFunc(all, func(a, b store.Task) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	return paginate(all, skip, limit), len(all), nil
}

func (s *memState) UpdateTask(_ context.Context, task store.Task) (store.Task, error) {
	existing, ok := s.tasks[task.ID]
	if !ok {
		return store.Task{}, sql.ErrNoRows
	}
	task.ListID = existing.ListID
	task.CreatedBy = existing.CreatedBy
	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = s.clock.tick()
	task.Tags = nil
	s.tasks[task.ID] = task
	return s.withTags(task), nil
}

func (s *memState) removeTask(id int64) {
	delete(s.tasks, id)
	delete(s.taskTags, id)
	for i, entry := range s.activity {
		if entry.TaskID != nil && *entry.TaskID == id {
			s.activity[i].TaskID = nil
		}
	}
}

func (s *memState) DeleteTask(_ context.Context, id int64) error {
	if _, ok := s.tasks[id]; !ok {
		return sql.ErrNoRows
	}
	s.removeTask(id)
	return nil
}

func (s *memState) DeleteTasksByList(_ context.Context, listID int64) (int64, error) {
	var n int64
	for id, task := range s.tasks {
		if task.ListID == listID {
			s.removeTask(id)
			n++
		}
	}
	return n, nil
}

func (s *memState) SetTaskTags(_ context.Context, taskID, creatorID int64, tagIDs []int64) error {
	kept := slices.DeleteFunc(slices.Clone(s.taskTags[taskID]), func(tagID int64) bool {
		return s.tags[tagID].CreatedBy == creatorID
	})
	for _, tagID := range tagIDs {
		tag, ok := s.tags[tagID]
		if !ok || tag.CreatedBy != creatorID || slices.Contains(kept, tagID) {
			continue
		}
		kept = append(kept, tagID)
	}
	s.taskTags[taskID] = kept
	return nil
}

func (s *memState) tagNameTaken(creatorID, exceptID int64, name string) bool {
	for _, tag := range s.tags {
		if tag.CreatedBy == creatorID && tag.Name == name && tag.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *memState) InsertTag(_ context.Context, tag store.Tag) (store.Tag, error) {
	if s.tagNameTaken(tag.CreatedBy, 0, tag.Name) {
		return store.Tag{}, fmt.Errorf("insert tag: %w (tags_creator_name_key)", store.ErrConflict)
	}
	tag.ID = s.id()
	tag.CreatedAt = s.clock.tick()
	s.tags[tag.ID] = tag
	return tag, nil
}

func (s *memState) GetTag(_ context.Context, id int64) (store.Tag, error) {
	tag, ok := s.tags[id]
	if !ok {
		return store.Tag{}, sql.ErrNoRows
	}
	return tag, nil
}

func (s *memState) GetTagByName(_ context.Context, creatorID int64, name string) (store.Tag, error) {
	for _, tag := range s.tags {
		if tag.CreatedBy == creatorID && tag.Name == name {
			return tag, nil
		}
	}
	return store.Tag{}, sql.ErrNoRows
}

func (s *memState) ListTagsByCreator(_ context.Context, creatorID int64) ([]store.Tag, error) {
	out := []store.Tag{}
	for _, tag := range s.tags {
		if tag.CreatedBy == creatorID {
			out = append(out, tag)
		}
	}
	slices.SortFunc(out, func(a, b store.Tag) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *memState) UpdateTag(_ context.Context, tag store.Tag) (store.Tag, error) {
	existing, ok := s.tags[tag.ID]
	if !ok {
		return store.Tag{}, sql.ErrNoRows
	}
	if s.tagNameTaken(existing.CreatedBy, tag.ID, tag.Name) {
		return store.Tag{}, fmt.Errorf("update tag: %w (tags_creator_name_key)", store.ErrConflict)
	}
	tag.CreatedBy = existing.CreatedBy
	tag.CreatedAt = existing.CreatedAt
	s.tags[tag.ID] = tag
	return tag, nil
}

func (s *memState) DeleteTag(_ context.Context, id int64) error {
	if _, ok := s.tags[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.tags, id)
	for taskID, tagIDs := range s.taskTags {
		s.taskTags[taskID] = slices.DeleteFunc(tagIDs, func(tagID int64) bool { return tagID == id })
	}
	return nil
}

func (s *memState) InsertActivity(_ context.Context, entry store.ActivityEntry) (store.ActivityEntry, error) {
	if _, ok := s.users[entry.ActorID]; !ok {
		return store.ActivityEntry{}, fmt.Errorf("insert activity: actor %d does not exist", entry.ActorID)
	}
	if entry.ListID != nil {
		if _, ok := s.lists[*entry.ListID]; !ok {
			return store.ActivityEntry{}, fmt.Errorf("insert activity: list %d does not exist", *entry.ListID)
		}
	}
	if entry.TaskID != nil {
		if _, ok := s.tasks[*entry.TaskID]; !ok {
			return store.ActivityEntry{}, fmt.Errorf("insert activity: task %d does not exist", *entry.TaskID)
		}
	}
	entry.ID = s.id()
	entry.CreatedAt = s.clock.tick()
	s.activity = append(s.activity, entry)
	return entry, nil
}

func (s *memState) ListActivity(_ context.Context, filter store.ActivityFilter) ([]store.ActivityEntry, int, error) {
	var all []store.ActivityEntry
	for _, entry := range s.activity {
		if filter.ActorID != nil && entry.ActorID != *filter.ActorID {
			continue
		}
		if filter.ListID != nil && (entry.ListID == nil || *entry.ListID != *filter.ListID) {
			continue
		}
		entry.ActorName = s.users[entry.ActorID].Username
		all = append(all, entry)
	}
	slices.SortStableFunc(all, func(a, b store.ActivityEntry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	return paginate(all, filter.Skip, filter.Limit), len(all), nil
}

var _ dataStore = (*memStore)(nil)
