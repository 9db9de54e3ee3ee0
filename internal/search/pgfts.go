package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true: if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

const (
	listDocument = `to_tsvector('english', l.name || ' ' || coalesce(l.description, ''))`
	taskDocument = `to_tsvector('english', t.name || ' ' || coalesce(t.description, ''))`
)

// Search runs a UNION ALL over lists and tasks restricted to q.ListIDs,
// ranked with ts_rank and with ts_headline snippets.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	q = q.normalized()
	if strings.TrimSpace(q.Text) == "" || len(q.ListIDs) == 0 {
		return nil, 0, nil
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text, q.ListIDs}

	var subQueries []string
	if q.FilterType == "" || q.FilterType == ResultList {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'list'::text AS type, l.id, l.name AS title,
				ts_headline('english', coalesce(l.description, ''), %[1]s, 'MaxFragments=1,MaxWords=30') AS snippet,
				l.id AS list_id,
				ts_rank(%[2]s, %[1]s) AS rank
			FROM lists l
			WHERE %[2]s @@ %[1]s AND l.id = ANY($2)`, tsQuery, listDocument))
	}
	if q.FilterType == "" || q.FilterType == ResultTodo {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'todo'::text AS type, t.id, t.name AS title,
				ts_headline('english', coalesce(t.description, ''), %[1]s, 'MaxFragments=1,MaxWords=30') AS snippet,
				t.list_id,
				ts_rank(%[2]s, %[1]s) AS rank
			FROM tasks t
			WHERE %[2]s @@ %[1]s AND t.list_id = ANY($2)`, tsQuery, taskDocument))
	}
	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	union := strings.Join(subQueries, " UNION ALL ")

	var total int
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) FROM ("+union+") sub", args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, list_id
		FROM (%s) sub
		ORDER BY rank DESC, id ASC
		LIMIT %d OFFSET %d`, union, q.Limit, q.Offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.ListID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ListRecord, []TaskRecord, error) {
	listRows, err := p.db.QueryContext(ctx, `SELECT id, name, coalesce(description, ''), owner_id FROM lists`)
	if err != nil {
		return nil, nil, fmt.Errorf("load lists: %w", err)
	}
	defer listRows.Close()

	lists := make([]ListRecord, 0)
	for listRows.Next() {
		var rec ListRecord
		if err := listRows.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.OwnerID); err != nil {
			return nil, nil, fmt.Errorf("scan list: %w", err)
		}
		rec.ListID = rec.ID
		lists = append(lists, rec)
	}
	if err := listRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate lists: %w", err)
	}

	taskRows, err := p.db.QueryContext(ctx, `SELECT id, name, coalesce(description, ''), list_id, status, priority FROM tasks`)
	if err != nil {
		return nil, nil, fmt.Errorf("load tasks: %w", err)
	}
	defer taskRows.Close()

	tasks := make([]TaskRecord, 0)
	for taskRows.Next() {
		var rec TaskRecord
		if err := taskRows.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.ListID, &rec.Status, &rec.Priority); err != nil {
			return nil, nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, rec)
	}
	if err := taskRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return lists, tasks, nil
}
