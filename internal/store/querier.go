package store

import (
	"context"
	"time"

	"sharelist/api/internal/rbac"
)

// Querier is every read and write the service performs. *Queries implements it
// over the pool or over a transaction.
type Querier interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)

	SaveRefreshSession(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)

	InsertList(ctx context.Context, list List) (List, error)
	GetList(ctx context.Context, id int64) (List, error)
	UpdateList(ctx context.Context, list List) (List, error)
	DeleteList(ctx context.Context, id int64) error
	ListAccessibleLists(ctx context.Context, userID int64, skip, limit int) ([]ListSummary, int, error)
	AccessibleListIDs(ctx context.Context, userID int64) ([]int64, error)
	CountTasks(ctx context.Context, listID int64) (int, error)

	GetGrantLevel(ctx context.Context, listID, userID int64) (rbac.GrantLevel, error)
	GetGrant(ctx context.Context, id int64) (Grant, error)
	UpsertGrant(ctx context.Context, grant Grant) (Grant, rbac.GrantLevel, error)
	UpdateGrantLevel(ctx context.Context, id int64, level rbac.GrantLevel) (Grant, error)
	DeleteGrant(ctx context.Context, id int64) error
	DeleteGrantsByList(ctx context.Context, listID int64) (int64, error)
	ListGrants(ctx context.Context, listID int64) ([]Grant, error)

	InsertTask(ctx context.Context, task Task) (Task, error)
	GetTask(ctx context.Context, id int64) (Task, error)
	ListTasks(ctx context.Context, listID int64, skip, limit int) ([]Task, int, error)
	UpdateTask(ctx context.Context, task Task) (Task, error)
	DeleteTask(ctx context.Context, id int64) error
	DeleteTasksByList(ctx context.Context, listID int64) (int64, error)
	SetTaskTags(ctx context.Context, taskID, creatorID int64, tagIDs []int64) error

	InsertTag(ctx context.Context, tag Tag) (Tag, error)
	GetTag(ctx context.Context, id int64) (Tag, error)
	GetTagByName(ctx context.Context, creatorID int64, name string) (Tag, error)
	ListTagsByCreator(ctx context.Context, creatorID int64) ([]Tag, error)
	UpdateTag(ctx context.Context, tag Tag) (Tag, error)
	DeleteTag(ctx context.Context, id int64) error

	InsertActivity(ctx context.Context, entry ActivityEntry) (ActivityEntry, error)
	ListActivity(ctx context.Context, filter ActivityFilter) ([]ActivityEntry, int, error)
}

var _ Querier = (*Queries)(nil)
