package search

import (
	"context"
	"errors"
	"testing"
)

type stubSearcher struct {
	results []Result
	total   int
	err     error
	got     Query
	calls   int
}

func (s *stubSearcher) Search(_ context.Context, q Query) ([]Result, int, error) {
	s.calls++
	s.got = q
	return s.results, s.total, s.err
}

func (s *stubSearcher) Healthy() bool { return true }

func TestServiceFallsBackToPostgres(t *testing.T) {
	pg := &stubSearcher{results: []Result{{Type: ResultTodo, ID: 1, ListID: 3, Title: "Milk"}}, total: 1}
	svc := NewService(nil, pg)

	resp := svc.Search(context.Background(), Query{Text: "milk", ListIDs: []int64{3}})
	if resp.Total != 1 || len(resp.Results) != 1 || resp.Results[0].Title != "Milk" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if pg.got.Limit != defaultLimit {
		t.Fatalf("expected default limit, got %d", pg.got.Limit)
	}
}

func TestServiceNeverReturnsInvisibleLists(t *testing.T) {
	pg := &stubSearcher{results: []Result{
		{Type: ResultList, ID: 3, ListID: 3},
		{Type: ResultTodo, ID: 9, ListID: 4},
	}, total: 2}
	svc := NewService(nil, pg)

	resp := svc.Search(context.Background(), Query{Text: "trip", ListIDs: []int64{3}})
	if len(resp.Results) != 1 || resp.Results[0].ListID != 3 {
		t.Fatalf("expected only list 3 hits, got %+v", resp.Results)
	}
}

func TestServiceSkipsEmptyQueries(t *testing.T) {
	pg := &stubSearcher{}
	svc := NewService(nil, pg)

	for _, q := range []Query{{Text: "  ", ListIDs: []int64{1}}, {Text: "milk"}} {
		resp := svc.Search(context.Background(), q)
		if resp.Results == nil || len(resp.Results) != 0 {
			t.Fatalf("expected empty non-nil results, got %+v", resp.Results)
		}
	}
	if pg.calls != 0 {
		t.Fatalf("expected no backend calls, got %d", pg.calls)
	}
}

func TestServiceSwallowsBackendErrors(t *testing.T) {
	svc := NewService(nil, &stubSearcher{err: errors.New("boom")})
	resp := svc.Search(context.Background(), Query{Text: "milk", ListIDs: []int64{1}})
	if resp.Total != 0 || len(resp.Results) != 0 {
		t.Fatalf("expected empty response, got %+v", resp)
	}
}

func TestListFilter(t *testing.T) {
	if got := listFilter([]int64{1, 22, 333}); got != "listId IN [1, 22, 333]" {
		t.Fatalf("unexpected filter %q", got)
	}
}

func TestParseResultType(t *testing.T) {
	cases := map[string]bool{"": true, "list": true, "todo": true, "document": false}
	for value, ok := range cases {
		if _, got := ParseResultType(value); got != ok {
			t.Fatalf("ParseResultType(%q) ok = %v, want %v", value, got, ok)
		}
	}
}

func TestIndexingIsNoopWithoutMeili(t *testing.T) {
	svc := NewService(nil, nil)
	svc.IndexList(ListRecord{ID: 1})
	svc.IndexTask(TaskRecord{ID: 1})
	svc.DeleteTask(1)
	svc.DeleteList(1, []int64{2})
	svc.ReindexAll(context.Background(), nil)
}
