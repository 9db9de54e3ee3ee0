package app

import (
	"time"

	"sharelist/api/internal/rbac"
	"sharelist/api/internal/store"
)

const dateLayout = "2006-01-02"

type UserView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  *string   `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func userView(user store.User) UserView {
	return UserView{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FullName:  user.FullName,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

type ListView struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	Color           string    `json:"color"`
	IsArchived      bool      `json:"is_archived"`
	OwnerID         int64     `json:"owner_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	TodoCount       int       `json:"todo_count"`
	PermissionLevel string    `json:"permission_level"`
}

func listView(list store.List, todoCount int, level rbac.Level) ListView {
	return ListView{
		ID:              list.ID,
		Name:            list.Name,
		Description:     list.Description,
		Color:           list.Color,
		IsArchived:      list.IsArchived,
		OwnerID:         list.OwnerID,
		CreatedAt:       list.CreatedAt,
		UpdatedAt:       list.UpdatedAt,
		TodoCount:       todoCount,
		PermissionLevel: level.String(),
	}
}

type TagView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func tagView(tag store.Tag) TagView {
	return TagView{ID: tag.ID, Name: tag.Name, Color: tag.Color, CreatedBy: tag.CreatedBy, CreatedAt: tag.CreatedAt}
}

func tagViews(tags []store.Tag) []TagView {
	out := make([]TagView, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tagView(tag))
	}
	return out
}

type TaskView struct {
	ID          int64              `json:"id"`
	ListID      int64              `json:"list_id"`
	Name        string             `json:"name"`
	Description *string            `json:"description"`
	DueDate     string             `json:"due_date"`
	Status      store.TaskStatus   `json:"status"`
	Priority    store.TaskPriority `json:"priority"`
	CreatedBy   int64              `json:"created_by"`
	CompletedAt *time.Time         `json:"completed_at"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Tags        []TagView          `json:"tags"`
}

func taskView(task store.Task) TaskView {
	return TaskView{
		ID:          task.ID,
		ListID:      task.ListID,
		Name:        task.Name,
		Description: task.Description,
		DueDate:     task.DueDate.Format(dateLayout),
		Status:      task.Status,
		Priority:    task.Priority,
		CreatedBy:   task.CreatedBy,
		CompletedAt: task.CompletedAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		Tags:        tagViews(task.Tags),
	}
}

type GrantView struct {
	ID              int64           `json:"id"`
	ListID          int64           `json:"list_id"`
	UserID          int64           `json:"user_id"`
	PermissionLevel rbac.GrantLevel `json:"permission_level"`
	SharedBy        int64           `json:"shared_by"`
	SharedAt        time.Time       `json:"shared_at"`
	User            *UserView       `json:"user,omitempty"`
}

func grantView(grant store.Grant) GrantView {
	view := GrantView{
		ID:              grant.ID,
		ListID:          grant.ListID,
		UserID:          grant.UserID,
		PermissionLevel: grant.Level,
		SharedBy:        grant.GrantedBy,
		SharedAt:        grant.GrantedAt,
	}
	if grant.Grantee != nil {
		user := userView(*grant.Grantee)
		view.User = &user
	}
	return view
}

// Page is the paginated response envelope.
type Page[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}
