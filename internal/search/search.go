package search

import "context"

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultList ResultType = "list"
	ResultTodo ResultType = "todo"
)

func ParseResultType(value string) (ResultType, bool) {
	switch ResultType(value) {
	case "":
		return "", true
	case ResultList, ResultTodo:
		return ResultType(value), true
	default:
		return "", false
	}
}

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      int64      `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	ListID  int64      `json:"list_id"`
}

// Query describes a search request. ListIDs holds every list the caller may
// view; hits outside it are never returned.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	ListIDs    []int64
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// ListRecord is the data we index for a list.
type ListRecord struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ListID      int64  `json:"listId"`
	OwnerID     int64  `json:"ownerId"`
}

// TaskRecord is the data we index for a task.
type TaskRecord struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ListID      int64  `json:"listId"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

const defaultLimit = 20

func (q Query) normalized() Query {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
