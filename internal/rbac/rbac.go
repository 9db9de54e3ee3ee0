// Package rbac resolves a user's effective capability on a list.
//
// Ownership is structural: it comes from the list's owner column and is never
// stored as a grant. GrantLevel is the only level that can be persisted, and it
// has no owner value.
package rbac

import "fmt"

// Level is the effective capability of a user on a list, ordered
// None < View < Update < Owner.
type Level uint8

const (
	LevelNone Level = iota
	LevelView
	LevelUpdate
	LevelOwner
)

func (l Level) String() string {
	switch l {
	case LevelOwner:
		return "owner"
	case LevelUpdate:
		return "update"
	case LevelView:
		return "view"
	default:
		return "none"
	}
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// GrantLevel is a level a sharing grant can carry.
type GrantLevel string

const (
	GrantView   GrantLevel = "view"
	GrantUpdate GrantLevel = "update"
)

// ParseGrantLevel accepts "view" or "update". "owner" is rejected.
func ParseGrantLevel(value string) (GrantLevel, error) {
	switch GrantLevel(value) {
	case GrantView, GrantUpdate:
		return GrantLevel(value), nil
	default:
		return "", fmt.Errorf("invalid permission level %q", value)
	}
}

// Level maps a stored grant onto the effective level it confers. The zero
// value means "no grant".
func (g GrantLevel) Level() Level {
	switch g {
	case GrantUpdate:
		return LevelUpdate
	case GrantView:
		return LevelView
	default:
		return LevelNone
	}
}

type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionManage Action = "manage"
)

// Resolve returns the effective level of userID on a list owned by ownerID
// holding grant (empty when there is no grant row). Ownership wins over any
// grant.
func Resolve(ownerID, userID int64, grant GrantLevel) Level {
	if userID != 0 && userID == ownerID {
		return LevelOwner
	}
	return grant.Level()
}

// Can reports whether level is enough for action.
func Can(level Level, action Action) bool {
	return level >= required(action)
}

// required is the minimum level an action needs. Unknown actions need
// ownership.
func required(action Action) Level {
	switch action {
	case ActionManage:
		return LevelOwner
	case ActionWrite:
		return LevelUpdate
	case ActionRead:
		return LevelView
	default:
		return LevelOwner
	}
}
