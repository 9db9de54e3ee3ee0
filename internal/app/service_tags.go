package app

import (
	"context"
	"database/sql"
	"errors"

	"sharelist/api/internal/access"
	"sharelist/api/internal/activity"
	"sharelist/api/internal/store"
)

type TagInput struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

type TagPatch struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

var errTagExists = conflict("Tag with this name already exists")

func (s *Service) ListTags(ctx context.Context, actorID int64) (Page[TagView], error) {
	tags, err := s.store.ListTagsByCreator(ctx, actorID)
	if err != nil {
		return Page[TagView]{}, err
	}
	return Page[TagView]{Total: len(tags), Items: tagViews(tags)}, nil
}

// nameTaken reports whether actorID already has a tag called name.
func nameTaken(ctx context.Context, q store.Querier, actorID int64, name string) (bool, error) {
	_, err := q.GetTagByName(ctx, actorID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) CreateTag(ctx context.Context, actorID int64, input TagInput) (TagView, error) {
	name, err := requireName("name", input.Name, maxTagNameLen)
	if err != nil {
		return TagView{}, err
	}
	color, err := colorOrDefault("color", input.Color, defaultTagColor)
	if err != nil {
		return TagView{}, err
	}

	var created store.Tag
	err = s.audited(ctx, func(ctx context.Context, tx *txScope) error {
		taken, err := nameTaken(ctx, tx.q, actorID, name)
		if err != nil {
			return err
		}
		if taken {
			return errTagExists
		}
		tag, err := tx.q.InsertTag(ctx, store.Tag{Name: name, Color: color, CreatedBy: actorID})
		if errors.Is(err, store.ErrConflict) {
			return errTagExists
		}
		if err != nil {
			return err
		}
		created = tag
		return tx.record(ctx, activity.TagEvent(actorID, activity.ActionCreated, tag))
	})
	if err != nil {
		return TagView{}, err
	}
	return tagView(created), nil
}

// loadOwnTag fetches a tag and checks actorID created it.
func loadOwnTag(ctx context.Context, q store.Querier, actorID, tagID int64) (store.Tag, error) {
	tag, err := q.GetTag(ctx, tagID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Tag{}, notFound("Tag")
	}
	if err != nil {
		return store.Tag{}, err
	}
	if tag.CreatedBy != actorID {
		return store.Tag{}, access.ErrForbidden
	}
	return tag, nil
}

func (s *Service) UpdateTag(ctx context.Context, actorID, tagID int64, patch TagPatch) (TagView, error) {
	var result store.Tag
	err := s.audited(ctx, func(ctx context.Context, tx *txScope) error {
		tag, err := loadOwnTag(ctx, tx.q, actorID, tagID)
		if err != nil {
			return err
		}

		next := tag
		if patch.Name != nil {
			name, err := requireName("name", *patch.Name, maxTagNameLen)
			if err != nil {
				return err
			}
			if name != tag.Name {
				taken, err := nameTaken(ctx, tx.q, actorID, name)
				if err != nil {
					return err
				}
				if taken {
					return errTagExists
				}
			}
			next.Name = name
		}
		if patch.Color != nil {
			color, err := validColor("color", *patch.Color)
			if err != nil {
				return err
			}
			next.Color = color
		}
		if next == tag {
			result = tag
			return nil
		}

		updated, err := tx.q.UpdateTag(ctx, next)
		if errors.Is(err, store.ErrConflict) {
			return errTagExists
		}
		if err != nil {
			return err
		}
		result = updated
		return tx.record(ctx, activity.TagEvent(actorID, activity.ActionUpdated, updated))
	})
	if err != nil {
		return TagView{}, err
	}
	return tagView(result), nil
}

// DeleteTag removes the tag. Tasks it was attached to keep existing.
func (s *Service) DeleteTag(ctx context.Context, actorID, tagID int64) error {
	return s.audited(ctx, func(ctx context.Context, tx *txScope) error {
		tag, err := loadOwnTag(ctx, tx.q, actorID, tagID)
		if err != nil {
			return err
		}
		if err := tx.record(ctx, activity.TagEvent(actorID, activity.ActionDeleted, tag)); err != nil {
			return err
		}
		return tx.q.DeleteTag(ctx, tag.ID)
	})
}
