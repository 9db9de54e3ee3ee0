package export

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"sharelist/api/internal/store"
)

// Source loads what an export renders. Callers check view access before
// calling Export.
type Source interface {
	ListTasks(ctx context.Context, listID int64, skip, limit int) ([]store.Task, int, error)
	ListGrants(ctx context.Context, listID int64) ([]store.Grant, error)
	ListActivity(ctx context.Context, filter store.ActivityFilter) ([]store.ActivityEntry, int, error)
	GetUserByID(ctx context.Context, id int64) (store.User, error)
}

const (
	maxExportTasks       = 1000
	defaultActivityLimit = 50
)

type Service struct {
	src Source
	now func() time.Time
}

func NewService(src Source) *Service {
	return &Service{src: src, now: time.Now}
}

// Export renders list in the requested format.
func (s *Service) Export(ctx context.Context, list store.List, req Request) (*Result, error) {
	data, err := s.load(ctx, list, req)
	if err != nil {
		return nil, err
	}

	html, err := RenderListHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatHTML, "":
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(list.Name) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(ctx, html, list.Name)
	case FormatDOCX:
		return exportDOCX(ctx, html, list.Name)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

// load fetches tasks, grants, the owner and the feed concurrently.
func (s *Service) load(ctx context.Context, list store.List, req Request) (TemplateData, error) {
	data := TemplateData{
		Title:       list.Name,
		Color:       list.Color,
		Archived:    list.IsArchived,
		GeneratedAt: s.now().UTC(),
	}
	if list.Description != nil {
		data.Description = DescriptionToHTML(*list.Description)
	}

	var (
		tasks   []store.Task
		grants  []store.Grant
		entries []store.ActivityEntry
		owner   store.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, _, err = s.src.ListTasks(gctx, list.ID, 0, maxExportTasks)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		grants, err = s.src.ListGrants(gctx, list.ID)
		if err != nil {
			return fmt.Errorf("list grants: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		owner, err = s.src.GetUserByID(gctx, list.OwnerID)
		if err != nil {
			return fmt.Errorf("load owner: %w", err)
		}
		return nil
	})
	if req.IncludeActivity {
		g.Go(func() error {
			limit := req.ActivityLimit
			if limit <= 0 {
				limit = defaultActivityLimit
			}
			listID := list.ID
			var err error
			entries, _, err = s.src.ListActivity(gctx, store.ActivityFilter{ListID: &listID, Limit: limit})
			if err != nil {
				return fmt.Errorf("list activity: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TemplateData{}, err
	}

	data.Owner = displayName(owner)
	for _, task := range tasks {
		row := TemplateTask{
			Name:      task.Name,
			Status:    string(task.Status),
			Priority:  string(task.Priority),
			DueDate:   task.DueDate,
			Completed: task.Status == store.StatusCompleted,
		}
		if task.Description != nil {
			row.Description = DescriptionToHTML(*task.Description)
		}
		for _, tag := range task.Tags {
			row.Tags = append(row.Tags, TemplateTag{Name: tag.Name, Color: tag.Color})
		}
		data.Tasks = append(data.Tasks, row)
	}
	for _, grant := range grants {
		name := fmt.Sprintf("user %d", grant.UserID)
		if grant.Grantee != nil {
			name = displayName(*grant.Grantee)
		}
		data.SharedWith = append(data.SharedWith, TemplateGrant{Name: name, Level: string(grant.Level)})
	}
	for _, entry := range entries {
		data.Activity = append(data.Activity, TemplateActivity{
			Actor:  entry.ActorName,
			Action: entry.Action,
			Entity: entry.Entity,
			Name:   detailName(entry.Details),
			At:     entry.CreatedAt,
		})
	}
	return data, nil
}

func displayName(user store.User) string {
	if user.FullName != nil && *user.FullName != "" {
		return *user.FullName
	}
	return user.Username
}

func detailName(details map[string]any) string {
	for _, key := range []string{"name", "list_name"} {
		if value, ok := details[key].(string); ok {
			return value
		}
	}
	return ""
}
