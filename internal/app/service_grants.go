package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"sharelist/api/internal/activity"
	"sharelist/api/internal/email"
	"sharelist/api/internal/rbac"
	"sharelist/api/internal/store"
)

type ShareInput struct {
	// UserIdentifier is a username or an email address.
	UserIdentifier  string `json:"user_identifier"`
	PermissionLevel string `json:"permission_level"`
}

func parseLevel(value string) (rbac.GrantLevel, error) {
	level, err := rbac.ParseGrantLevel(strings.TrimSpace(value))
	if err != nil {
		return "", validationError("permission_level", "permission_level must be view or update")
	}
	return level, nil
}

func (s *Service) ListGrants(ctx context.Context, actorID, listID int64) ([]GrantView, error) {
	if _, err := s.gate().RequireOwnership(ctx, listID, actorID); err != nil {
		return nil, err
	}
	grants, err := s.store.ListGrants(ctx, listID)
	if err != nil {
		return nil, err
	}
	out := make([]GrantView, 0, len(grants))
	for _, grant := range grants {
		out = append(out, grantView(grant))
	}
	return out, nil
}

// ShareList grants a user access to a list, or changes the level of an
// existing grant. Sharing again at the same level changes nothing and
// records nothing. The owner can never be given a grant.
func (s *Service) ShareList(ctx context.Context, actorID, listID int64, input ShareInput) (GrantView, error) {
	level, err := parseLevel(input.PermissionLevel)
	if err != nil {
		return GrantView{}, err
	}
	identifier := strings.TrimSpace(input.UserIdentifier)
	if identifier == "" {
		return GrantView{}, validationError("user_identifier", "user_identifier is required")
	}

	var result store.Grant
	err = s.audited(ctx, func(ctx context.Context, tx *txScope) error {
		list, err := tx.gate.RequireOwnership(ctx, listID, actorID)
		if err != nil {
			return err
		}
		target, err := tx.q.GetUserByIdentifier(ctx, identifier)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("User")
		}
		if err != nil {
			return err
		}
		if target.ID == list.OwnerID {
			return validationError("user_identifier", "Cannot share a list with its owner")
		}

		grant, previous, err := tx.q.UpsertGrant(ctx, store.Grant{ListID: list.ID, UserID: target.ID, Level: level, GrantedBy: actorID})
		if err != nil {
			return err
		}
		result = grant
		switch previous {
		case "":
			tx.after(func(ctx context.Context) { s.notifyShared(ctx, actorID, list, target, level) })
			if err := tx.record(ctx, activity.Shared(actorID, list, target.ID, level)); err != nil {
				return err
			}
		case level:
		default:
			if err := tx.record(ctx, activity.PermissionChanged(actorID, list, target.ID, previous, level)); err != nil {
				return err
			}
		}
		result.Grantee = &target
		return nil
	})
	if err != nil {
		return GrantView{}, err
	}
	return grantView(result), nil
}

// loadGrant fetches a grant of listID. A grant on another list is not found.
func loadGrant(ctx context.Context, q store.Querier, listID, grantID int64) (store.Grant, error) {
	grant, err := q.GetGrant(ctx, grantID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Grant{}, notFound("Permission")
	}
	if err != nil {
		return store.Grant{}, err
	}
	if grant.ListID != listID {
		return store.Grant{}, notFound("Permission")
	}
	return grant, nil
}

func (s *Service) UpdateGrant(ctx context.Context, actorID, listID, grantID int64, levelValue string) (GrantView, error) {
	level, err := parseLevel(levelValue)
	if err != nil {
		return GrantView{}, err
	}

	var result store.Grant
	err = s.audited(ctx, func(ctx context.Context, tx *txScope) error {
		grant, err := loadGrant(ctx, tx.q, listID, grantID)
		if err != nil {
			return err
		}
		list, err := tx.gate.RequireOwnership(ctx, listID, actorID)
		if err != nil {
			return err
		}

		result = grant
		if grant.Level != level {
			updated, err := tx.q.UpdateGrantLevel(ctx, grant.ID, level)
			if err != nil {
				return err
			}
			result = updated
			if err := tx.record(ctx, activity.PermissionChanged(actorID, list, grant.UserID, grant.Level, level)); err != nil {
				return err
			}
		}
		grantee, err := tx.q.GetUserByID(ctx, grant.UserID)
		if err != nil {
			return fmt.Errorf("load grantee: %w", err)
		}
		result.Grantee = &grantee
		return nil
	})
	if err != nil {
		return GrantView{}, err
	}
	return grantView(result), nil
}

func (s *Service) RevokeGrant(ctx context.Context, actorID, listID, grantID int64) error {
	return s.audited(ctx, func(ctx context.Context, tx *txScope) error {
		grant, err := loadGrant(ctx, tx.q, listID, grantID)
		if err != nil {
			return err
		}
		list, err := tx.gate.RequireOwnership(ctx, listID, actorID)
		if err != nil {
			return err
		}
		if err := tx.q.DeleteGrant(ctx, grant.ID); err != nil {
			return err
		}
		return tx.record(ctx, activity.Unshared(actorID, list, grant.UserID, grant.Level))
	})
}

func (s *Service) notifyShared(ctx context.Context, actorID int64, list store.List, target store.User, level rbac.GrantLevel) {
	if s.mailer == nil || !s.mailer.IsConfigured() {
		return
	}
	actor, err := s.store.GetUserByID(ctx, actorID)
	if err != nil {
		log.Printf("email: load sharer %d: %v", actorID, err)
		return
	}
	err = s.mailer.SendShareNotification(target.Email, email.ShareData{
		RecipientName: displayName(target),
		SharedBy:      displayName(actor),
		ListName:      list.Name,
		Level:         string(level),
		ListURL:       fmt.Sprintf("%s/lists/%d", strings.TrimRight(s.cfg.PublicURL, "/"), list.ID),
	})
	if err != nil {
		log.Printf("email: share notification for list %d to user %d: %v", list.ID, target.ID, err)
	}
}

func displayName(user store.User) string {
	if user.FullName != nil && strings.TrimSpace(*user.FullName) != "" {
		return *user.FullName
	}
	return user.Username
}
