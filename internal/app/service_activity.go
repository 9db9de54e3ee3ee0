package app

import (
	"context"
	"strings"

	"sharelist/api/internal/access"
	"sharelist/api/internal/activity"
	"sharelist/api/internal/export"
	"sharelist/api/internal/rbac"
	"sharelist/api/internal/realtime"
	"sharelist/api/internal/search"
)

func feedPage(page activity.Page) Page[activity.EntryView] {
	return Page[activity.EntryView]{Total: page.Total, Items: activity.Views(page.Items)}
}

// MyActivity is everything the actor did.
func (s *Service) MyActivity(ctx context.Context, actorID int64, skip, limit int) (Page[activity.EntryView], error) {
	page, err := activity.UserFeed(ctx, s.store, actorID, skip, limit)
	if err != nil {
		return Page[activity.EntryView]{}, err
	}
	return feedPage(page), nil
}

func (s *Service) ListActivity(ctx context.Context, actorID, listID int64, skip, limit int) (Page[activity.EntryView], error) {
	if _, err := s.gate().RequireView(ctx, listID, actorID); err != nil {
		return Page[activity.EntryView]{}, err
	}
	page, err := activity.ListFeed(ctx, s.store, listID, skip, limit)
	if err != nil {
		return Page[activity.EntryView]{}, err
	}
	return feedPage(page), nil
}

// AllActivity is the global feed shared by every user. Without a list filter
// it includes entries of lists the actor cannot view; narrowing it to one
// list requires view access to that list.
func (s *Service) AllActivity(ctx context.Context, actorID int64, filter activity.Filter) (Page[activity.EntryView], error) {
	if filter.ListID != nil {
		if _, err := s.gate().RequireView(ctx, *filter.ListID, actorID); err != nil {
			return Page[activity.EntryView]{}, err
		}
	}
	page, err := activity.GlobalFeed(ctx, s.store, filter)
	if err != nil {
		return Page[activity.EntryView]{}, err
	}
	return feedPage(page), nil
}

// ListStream is a subscription to one list's activity. Access is checked
// when it opens and again, through Authorize, before every delivery, so a
// revoked grant or a deleted list ends the stream at its next message.
type ListStream struct {
	C <-chan realtime.Message

	sub    *realtime.Subscription
	gate   *access.Gate
	listID int64
	userID int64
}

// Authorize returns access.ErrForbidden once the subscriber can no longer
// view the list. A missing list resolves to no access.
func (st *ListStream) Authorize(ctx context.Context) error {
	if st.gate.EffectiveLevel(ctx, st.listID, st.userID) < rbac.LevelView {
		return access.ErrForbidden
	}
	return nil
}

func (st *ListStream) Close() error {
	return st.sub.Close()
}

// SubscribeList streams committed activity of a list the actor can view.
func (s *Service) SubscribeList(ctx context.Context, actorID, listID int64) (*ListStream, error) {
	gate := s.gate()
	if _, err := gate.RequireView(ctx, listID, actorID); err != nil {
		return nil, err
	}
	sub, err := s.hub.Subscribe(ctx, listID)
	if err != nil {
		return nil, err
	}
	return &ListStream{C: sub.C, sub: sub, gate: gate, listID: listID, userID: actorID}, nil
}

// Search only ever returns lists and tasks the actor can currently view.
func (s *Service) Search(ctx context.Context, actorID int64, q search.Query) (search.Response, error) {
	empty := search.Response{Results: []search.Result{}, Query: q.Text}
	if s.search == nil || strings.TrimSpace(q.Text) == "" {
		return empty, nil
	}
	ids, err := s.store.AccessibleListIDs(ctx, actorID)
	if err != nil {
		return search.Response{}, err
	}
	q.ListIDs = ids
	return s.search.Search(ctx, q), nil
}

func (s *Service) ExportList(ctx context.Context, actorID int64, req export.Request) (*export.Result, error) {
	list, err := s.gate().RequireView(ctx, req.ListID, actorID)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, list, req)
}
