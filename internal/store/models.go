package store

import (
	"time"

	"sharelist/api/internal/rbac"
)

type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	FullName     *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type List struct {
	ID          int64
	Name        string
	Description *string
	Color       string
	IsArchived  bool
	OwnerID     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListSummary is a list as seen by one user: the task count and the grant the
// user holds on it (empty for lists the user owns).
type ListSummary struct {
	List
	TodoCount  int
	GrantLevel rbac.GrantLevel
}

// Grant is a sharing grant. The owner of a list never has one.
type Grant struct {
	ID        int64
	ListID    int64
	UserID    int64
	Level     rbac.GrantLevel
	GrantedBy int64
	GrantedAt time.Time
	// Grantee is populated by ListGrants.
	Grantee *User
}

type TaskStatus string

const (
	StatusNotStarted TaskStatus = "Not Started"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityHighest TaskPriority = "Highest"
	PriorityHigh    TaskPriority = "High"
	PriorityMedium  TaskPriority = "Medium"
	PriorityLow     TaskPriority = "Low"
	PriorityLowest  TaskPriority = "Lowest"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityHighest, PriorityHigh, PriorityMedium, PriorityLow, PriorityLowest:
		return true
	}
	return false
}

type Task struct {
	ID          int64
	ListID      int64
	Name        string
	Description *string
	DueDate     time.Time
	Status      TaskStatus
	Priority    TaskPriority
	CreatedBy   int64
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tags        []Tag
}

type Tag struct {
	ID        int64
	Name      string
	Color     string
	CreatedBy int64
	CreatedAt time.Time
}

// ActivityEntry is one immutable row of the activity log.
type ActivityEntry struct {
	ID        int64
	ActorID   int64
	Action    string
	Entity    string
	EntityID  *int64
	ListID    *int64
	TaskID    *int64
	Details   map[string]any
	CreatedAt time.Time
	// ActorName is the actor's username, filled on reads.
	ActorName string
}

type ActivityFilter struct {
	ActorID *int64
	ListID  *int64
	Skip    int
	Limit   int
}
