// Package access guards list operations. Every check loads the list first,
// so a missing list is reported as ErrNotFound before any permission check
// can report ErrForbidden.
package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sharelist/api/internal/rbac"
	"sharelist/api/internal/store"
)

var (
	ErrNotFound  = errors.New("list not found")
	ErrForbidden = errors.New("forbidden")
)

// Source is the part of the store the gate reads. Both the pool and a
// transaction handle satisfy it.
type Source interface {
	GetList(ctx context.Context, id int64) (store.List, error)
	GetGrantLevel(ctx context.Context, listID, userID int64) (rbac.GrantLevel, error)
}

type Gate struct {
	src Source
}

func New(src Source) *Gate {
	return &Gate{src: src}
}

func (g *Gate) load(ctx context.Context, listID int64) (store.List, error) {
	list, err := g.src.GetList(ctx, listID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.List{}, ErrNotFound
	}
	if err != nil {
		return store.List{}, fmt.Errorf("load list %d: %w", listID, err)
	}
	return list, nil
}

// Resolve computes userID's level on an already loaded list.
func (g *Gate) Resolve(ctx context.Context, list store.List, userID int64) (rbac.Level, error) {
	if list.OwnerID == userID {
		return rbac.LevelOwner, nil
	}
	grant, err := g.src.GetGrantLevel(ctx, list.ID, userID)
	if err != nil {
		return rbac.LevelNone, fmt.Errorf("load grant: %w", err)
	}
	return rbac.Resolve(list.OwnerID, userID, grant), nil
}

func (g *Gate) require(ctx context.Context, listID, userID int64, action rbac.Action) (store.List, error) {
	list, err := g.load(ctx, listID)
	if err != nil {
		return store.List{}, err
	}
	level, err := g.Resolve(ctx, list, userID)
	if err != nil {
		return store.List{}, err
	}
	if !rbac.Can(level, action) {
		return store.List{}, ErrForbidden
	}
	return list, nil
}

// RequireOwnership passes only for the list owner.
func (g *Gate) RequireOwnership(ctx context.Context, listID, userID int64) (store.List, error) {
	return g.require(ctx, listID, userID, rbac.ActionManage)
}

func (g *Gate) RequireView(ctx context.Context, listID, userID int64) (store.List, error) {
	return g.require(ctx, listID, userID, rbac.ActionRead)
}

func (g *Gate) RequireUpdate(ctx context.Context, listID, userID int64) (store.List, error) {
	return g.require(ctx, listID, userID, rbac.ActionWrite)
}

// EffectiveLevel never fails: a missing list or a lookup error both yield
// rbac.LevelNone.
func (g *Gate) EffectiveLevel(ctx context.Context, listID, userID int64) rbac.Level {
	list, err := g.load(ctx, listID)
	if err != nil {
		return rbac.LevelNone
	}
	level, err := g.Resolve(ctx, list, userID)
	if err != nil {
		return rbac.LevelNone
	}
	return level
}
