package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sharelist/api/internal/rbac"
)

type PostgresStore struct {
	*Queries
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{Queries: &Queries{db: db}, db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Queries runs statements against either the pool or a transaction.
type Queries struct {
	db dbtx
}

type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, email, username, password_hash, full_name, is_active, created_at, updated_at`

func scanUser(row rowScanner) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.FullName, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (q *Queries) CreateUser(ctx context.Context, user User) (User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username, password_hash, full_name, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		user.Email, user.Username, user.PasswordHash, user.FullName, user.IsActive,
	)
	created, err := scanUser(row)
	if err != nil {
		return User{}, conflictError(err, "insert user")
	}
	return created, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

// GetUserByIdentifier matches either the username or the email address.
func (q *Queries) GetUserByIdentifier(ctx context.Context, identifier string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE username = $1 OR LOWER(email) = LOWER($1)
		ORDER BY (username = $1) DESC
		LIMIT 1
	`, identifier))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username))
}

func (q *Queries) UpdateUser(ctx context.Context, user User) (User, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE users
		SET email=$2, username=$3, password_hash=$4, full_name=$5, is_active=$6, updated_at=NOW()
		WHERE id=$1
		RETURNING `+userColumns,
		user.ID, user.Email, user.Username, user.PasswordHash, user.FullName, user.IsActive,
	)
	updated, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, err
	}
	if err != nil {
		return User{}, conflictError(err, "update user")
	}
	return updated, nil
}

func (q *Queries) SaveRefreshSession(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (q *Queries) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (q *Queries) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.username, u.password_hash, u.full_name, u.is_active, u.created_at, u.updated_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`, tokenHash))
}

func (q *Queries) RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, expiresAt)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (q *Queries) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := q.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

const listColumns = `l.id, l.name, l.description, l.color, l.is_archived, l.owner_id, l.created_at, l.updated_at`

func scanList(row rowScanner, extra ...any) (List, error) {
	var list List
	dest := []any{&list.ID, &list.Name, &list.Description, &list.Color, &list.IsArchived, &list.OwnerID, &list.CreatedAt, &list.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	return list, err
}

func (q *Queries) InsertList(ctx context.Context, list List) (List, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO lists AS l (name, description, color, is_archived, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+listColumns,
		list.Name, list.Description, list.Color, list.IsArchived, list.OwnerID,
	)
	created, err := scanList(row)
	if err != nil {
		return List{}, fmt.Errorf("insert list: %w", err)
	}
	return created, nil
}

func (q *Queries) GetList(ctx context.Context, id int64) (List, error) {
	return scanList(q.db.QueryRowContext(ctx, `SELECT `+listColumns+` FROM lists l WHERE l.id=$1`, id))
}

func (q *Queries) UpdateList(ctx context.Context, list List) (List, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE lists AS l
		SET name=$2, description=$3, color=$4, is_archived=$5, updated_at=NOW()
		WHERE l.id=$1
		RETURNING `+listColumns,
		list.ID, list.Name, list.Description, list.Color, list.IsArchived,
	)
	updated, err := scanList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return List{}, err
	}
	if err != nil {
		return List{}, fmt.Errorf("update list: %w", err)
	}
	return updated, nil
}

func (q *Queries) DeleteList(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM lists WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAccessibleLists returns the lists userID owns or holds a grant on.
func (q *Queries) ListAccessibleLists(ctx context.Context, userID int64, skip, limit int) ([]ListSummary, int, error) {
	var total int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM lists l
		LEFT JOIN list_grants g ON g.list_id = l.id AND g.user_id = $1
		WHERE l.owner_id = $1 OR g.id IS NOT NULL
	`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count lists: %w", err)
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT `+listColumns+`,
			(SELECT COUNT(*) FROM tasks t WHERE t.list_id = l.id) AS todo_count,
			COALESCE(g.level, '') AS grant_level
		FROM lists l
		LEFT JOIN list_grants g ON g.list_id = l.id AND g.user_id = $1
		WHERE l.owner_id = $1 OR g.id IS NOT NULL
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	items := make([]ListSummary, 0)
	for rows.Next() {
		var summary ListSummary
		var level string
		list, err := scanList(rows, &summary.TodoCount, &level)
		if err != nil {
			return nil, 0, fmt.Errorf("scan list: %w", err)
		}
		summary.List = list
		summary.GrantLevel = rbac.GrantLevel(level)
		items = append(items, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate lists: %w", err)
	}
	return items, total, nil
}

func (q *Queries) AccessibleListIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id FROM lists WHERE owner_id = $1
		UNION
		SELECT list_id FROM list_grants WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accessible ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan list id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate list ids: %w", err)
	}
	return ids, nil
}

func (q *Queries) CountTasks(ctx context.Context, listID int64) (int, error) {
	var count int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE list_id=$1`, listID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

// GetGrantLevel returns the level of the grant for (listID, userID), or an
// empty level when there is none.
func (q *Queries) GetGrantLevel(ctx context.Context, listID, userID int64) (rbac.GrantLevel, error) {
	var level string
	err := q.db.QueryRowContext(ctx, `SELECT level FROM list_grants WHERE list_id=$1 AND user_id=$2`, listID, userID).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read grant level: %w", err)
	}
	return rbac.GrantLevel(level), nil
}

const grantColumns = `id, list_id, user_id, level, granted_by, granted_at`

func scanGrant(row rowScanner) (Grant, error) {
	var grant Grant
	var level string
	err := row.Scan(&grant.ID, &grant.ListID, &grant.UserID, &level, &grant.GrantedBy, &grant.GrantedAt)
	grant.Level = rbac.GrantLevel(level)
	return grant, err
}

func (q *Queries) GetGrant(ctx context.Context, id int64) (Grant, error) {
	return scanGrant(q.db.QueryRowContext(ctx, `SELECT `+grantColumns+` FROM list_grants WHERE id=$1`, id))
}

// UpsertGrant gives grant.UserID grant.Level on grant.ListID. It returns the
// saved grant and the level held before the call, empty when the grant is
// new.
//
// The insert waits on a concurrent insert of the same pair, so a share that
// loses the race sees the committed row and reports its level instead of
// claiming a first share.
func (q *Queries) UpsertGrant(ctx context.Context, grant Grant) (Grant, rbac.GrantLevel, error) {
	inserted, err := scanGrant(q.db.QueryRowContext(ctx, `
		INSERT INTO list_grants (list_id, user_id, level, granted_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (list_id, user_id) DO NOTHING
		RETURNING `+grantColumns,
		grant.ListID, grant.UserID, string(grant.Level), grant.GrantedBy,
	))
	if err == nil {
		return inserted, "", nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Grant{}, "", fmt.Errorf("insert grant: %w", err)
	}

	existing, err := scanGrant(q.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+` FROM list_grants
		WHERE list_id=$1 AND user_id=$2
		FOR UPDATE`,
		grant.ListID, grant.UserID,
	))
	if err != nil {
		return Grant{}, "", fmt.Errorf("lock grant: %w", err)
	}
	if existing.Level == grant.Level {
		return existing, existing.Level, nil
	}
	updated, err := q.UpdateGrantLevel(ctx, existing.ID, grant.Level)
	if err != nil {
		return Grant{}, "", fmt.Errorf("update grant level: %w", err)
	}
	return updated, existing.Level, nil
}

func (q *Queries) UpdateGrantLevel(ctx context.Context, id int64, level rbac.GrantLevel) (Grant, error) {
	return scanGrant(q.db.QueryRowContext(ctx, `
		UPDATE list_grants SET level=$2 WHERE id=$1
		RETURNING `+grantColumns,
		id, string(level),
	))
}

func (q *Queries) DeleteGrant(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM list_grants WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (q *Queries) DeleteGrantsByList(ctx context.Context, listID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, `DELETE FROM list_grants WHERE list_id=$1`, listID)
	if err != nil {
		return 0, fmt.Errorf("delete list grants: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

func (q *Queries) ListGrants(ctx context.Context, listID int64) ([]Grant, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT g.id, g.list_id, g.user_id, g.level, g.granted_by, g.granted_at,
			u.id, u.email, u.username, u.full_name, u.is_active, u.created_at, u.updated_at
		FROM list_grants g
		JOIN users u ON u.id = g.user_id
		WHERE g.list_id = $1
		ORDER BY g.granted_at ASC, g.id ASC
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	items := make([]Grant, 0)
	for rows.Next() {
		var grant Grant
		var level string
		var user User
		if err := rows.Scan(
			&grant.ID, &grant.ListID, &grant.UserID, &level, &grant.GrantedBy, &grant.GrantedAt,
			&user.ID, &user.Email, &user.Username, &user.FullName, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grant.Level = rbac.GrantLevel(level)
		grant.Grantee = &user
		items = append(items, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}
	return items, nil
}

const taskColumns = `id, list_id, name, description, due_date, status, priority, created_by, completed_at, created_at, updated_at`

func scanTask(row rowScanner) (Task, error) {
	var task Task
	var status, priority string
	err := row.Scan(&task.ID, &task.ListID, &task.Name, &task.Description, &task.DueDate, &status, &priority,
		&task.CreatedBy, &task.CompletedAt, &task.CreatedAt, &task.UpdatedAt)
	task.Status = TaskStatus(status)
	task.Priority = TaskPriority(priority)
	task.Tags = []Tag{}
	return task, err
}

func (q *Queries) InsertTask(ctx context.Context, task Task) (Task, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO tasks (list_id, name, description, due_date, status, priority, created_by, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+taskColumns,
		task.ListID, task.Name, task.Description, task.DueDate, string(task.Status), string(task.Priority), task.CreatedBy, task.CompletedAt,
	)
	created, err := scanTask(row)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return created, nil
}

func (q *Queries) GetTask(ctx context.Context, id int64) (Task, error) {
	task, err := scanTask(q.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id))
	if err != nil {
		return Task{}, err
	}
	tags, err := q.tagsForTasks(ctx, []int64{task.ID})
	if err != nil {
		return Task{}, err
	}
	if found, ok := tags[task.ID]; ok {
		task.Tags = found
	}
	return task, nil
}

func (q *Queries) ListTasks(ctx context.Context, listID int64, skip, limit int) ([]Task, int, error) {
	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE list_id=$1`, listID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE list_id=$1
		ORDER BY due_date ASC, id ASC
		LIMIT $2 OFFSET $3
	`, listID, limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, task)
		ids = append(ids, task.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tasks: %w", err)
	}

	tags, err := q.tagsForTasks(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		if found, ok := tags[items[i].ID]; ok {
			items[i].Tags = found
		}
	}
	return items, total, nil
}

func (q *Queries) tagsForTasks(ctx context.Context, taskIDs []int64) (map[int64][]Tag, error) {
	out := make(map[int64][]Tag, len(taskIDs))
	if len(taskIDs) == 0 {
		return out, nil
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT tt.task_id, t.id, t.name, t.color, t.created_by, t.created_at
		FROM task_tags tt
		JOIN tags t ON t.id = tt.tag_id
		WHERE tt.task_id = ANY($1)
		ORDER BY t.name ASC, t.id ASC
	`, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("load task tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID int64
		var tag Tag
		if err := rows.Scan(&taskID, &tag.ID, &tag.Name, &tag.Color, &tag.CreatedBy, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task tag: %w", err)
		}
		out[taskID] = append(out[taskID], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task tags: %w", err)
	}
	return out, nil
}

func (q *Queries) UpdateTask(ctx context.Context, task Task) (Task, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET name=$2, description=$3, due_date=$4, status=$5, priority=$6, completed_at=$7, updated_at=NOW()
		WHERE id=$1
		RETURNING `+taskColumns,
		task.ID, task.Name, task.Description, task.DueDate, string(task.Status), string(task.Priority), task.CompletedAt,
	)
	updated, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, err
	}
	if err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	return updated, nil
}

func (q *Queries) DeleteTask(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (q *Queries) DeleteTasksByList(ctx context.Context, listID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, `DELETE FROM tasks WHERE list_id=$1`, listID)
	if err != nil {
		return 0, fmt.Errorf("delete list tasks: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

// SetTaskTags replaces the tags creatorID has on a task. Tags of other users
// stay attached, and ids that are not creatorID's tags are ignored.
func (q *Queries) SetTaskTags(ctx context.Context, taskID, creatorID int64, tagIDs []int64) error {
	if _, err := q.db.ExecContext(ctx, `
		DELETE FROM task_tags tt
		USING tags t
		WHERE tt.tag_id = t.id AND tt.task_id = $1 AND t.created_by = $2
	`, taskID, creatorID); err != nil {
		return fmt.Errorf("clear task tags: %w", err)
	}
	if len(tagIDs) == 0 {
		return nil
	}
	if _, err := q.db.ExecContext(ctx, `
		INSERT INTO task_tags (task_id, tag_id)
		SELECT $1, t.id FROM tags t
		WHERE t.id = ANY($2) AND t.created_by = $3
		ON CONFLICT DO NOTHING
	`, taskID, tagIDs, creatorID); err != nil {
		return fmt.Errorf("attach task tags: %w", err)
	}
	return nil
}

const tagColumns = `id, name, color, created_by, created_at`

func scanTag(row rowScanner) (Tag, error) {
	var tag Tag
	err := row.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.CreatedBy, &tag.CreatedAt)
	return tag, err
}

func (q *Queries) InsertTag(ctx context.Context, tag Tag) (Tag, error) {
	created, err := scanTag(q.db.QueryRowContext(ctx, `
		INSERT INTO tags (name, color, created_by)
		VALUES ($1, $2, $3)
		RETURNING `+tagColumns,
		tag.Name, tag.Color, tag.CreatedBy,
	))
	if err != nil {
		return Tag{}, conflictError(err, "insert tag")
	}
	return created, nil
}

func (q *Queries) GetTag(ctx context.Context, id int64) (Tag, error) {
	return scanTag(q.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id=$1`, id))
}

func (q *Queries) GetTagByName(ctx context.Context, creatorID int64, name string) (Tag, error) {
	return scanTag(q.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE created_by=$1 AND name=$2`, creatorID, name))
}

func (q *Queries) ListTagsByCreator(ctx context.Context, creatorID int64) ([]Tag, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE created_by=$1 ORDER BY name ASC, id ASC`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	items := make([]Tag, 0)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return items, nil
}

func (q *Queries) UpdateTag(ctx context.Context, tag Tag) (Tag, error) {
	updated, err := scanTag(q.db.QueryRowContext(ctx, `
		UPDATE tags SET name=$2, color=$3 WHERE id=$1
		RETURNING `+tagColumns,
		tag.ID, tag.Name, tag.Color,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return Tag{}, err
	}
	if err != nil {
		return Tag{}, conflictError(err, "update tag")
	}
	return updated, nil
}

func (q *Queries) DeleteTag(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM tags WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (q *Queries) InsertActivity(ctx context.Context, entry ActivityEntry) (ActivityEntry, error) {
	var details any
	if entry.Details != nil {
		encoded, err := json.Marshal(entry.Details)
		if err != nil {
			return ActivityEntry{}, fmt.Errorf("marshal activity details: %w", err)
		}
		details = string(encoded)
	}

	err := q.db.QueryRowContext(ctx, `
		INSERT INTO activity_log (actor_id, action, entity, entity_id, list_id, task_id, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		RETURNING id, created_at
	`, entry.ActorID, entry.Action, entry.Entity, entry.EntityID, entry.ListID, entry.TaskID, details).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return ActivityEntry{}, fmt.Errorf("insert activity: %w", err)
	}
	return entry, nil
}

// ListActivity returns one page of the log, newest first. Entries sharing a
// timestamp keep insertion order so pages stay stable.
func (q *Queries) ListActivity(ctx context.Context, filter ActivityFilter) ([]ActivityEntry, int, error) {
	where := `WHERE ($1::bigint IS NULL OR a.actor_id = $1) AND ($2::bigint IS NULL OR a.list_id = $2)`

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_log a `+where, filter.ActorID, filter.ListID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activity: %w", err)
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT a.id, a.actor_id, a.action, a.entity, a.entity_id, a.list_id, a.task_id, a.details, a.created_at, u.username
		FROM activity_log a
		JOIN users u ON u.id = a.actor_id
		`+where+`
		ORDER BY a.created_at DESC, a.id ASC
		LIMIT $3 OFFSET $4
	`, filter.ActorID, filter.ListID, filter.Limit, filter.Skip)
	if err != nil {
		return nil, 0, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	items := make([]ActivityEntry, 0)
	for rows.Next() {
		var entry ActivityEntry
		var details []byte
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID,
			&entry.ListID, &entry.TaskID, &details, &entry.CreatedAt, &entry.ActorName); err != nil {
			return nil, 0, fmt.Errorf("scan activity: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, 0, fmt.Errorf("decode activity details %d: %w", entry.ID, err)
			}
		}
		items = append(items, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate activity: %w", err)
	}
	return items, total, nil
}
