package search

import (
	"context"
	"log"
	"strings"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts Searcher
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts Searcher) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	q = q.normalized()
	if strings.TrimSpace(q.Text) == "" || len(q.ListIDs) == 0 {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}

	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: visible(results, q.ListIDs), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	if s.pgfts == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.pgfts.Search(ctx, q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: visible(results, q.ListIDs), Total: total, Query: q.Text}
}

func (s *Service) indexing() bool {
	return s.meili != nil && s.meili.Healthy()
}

// IndexList indexes a list (fire-and-forget to Meilisearch).
func (s *Service) IndexList(rec ListRecord) {
	if !s.indexing() {
		return
	}
	go func() {
		if err := s.meili.IndexList(rec); err != nil {
			log.Printf("search: index list %d: %v", rec.ID, err)
		}
	}()
}

// IndexTask indexes a task (fire-and-forget to Meilisearch).
func (s *Service) IndexTask(rec TaskRecord) {
	if !s.indexing() {
		return
	}
	go func() {
		if err := s.meili.IndexTask(rec); err != nil {
			log.Printf("search: index task %d: %v", rec.ID, err)
		}
	}()
}

// DeleteList removes a list and the given tasks from the index.
func (s *Service) DeleteList(id int64, taskIDs []int64) {
	if !s.indexing() {
		return
	}
	go func() {
		if err := s.meili.DeleteList(id); err != nil {
			log.Printf("search: delete list %d: %v", id, err)
		}
		for _, taskID := range taskIDs {
			if err := s.meili.DeleteTask(taskID); err != nil {
				log.Printf("search: delete task %d: %v", taskID, err)
			}
		}
	}()
}

func (s *Service) DeleteTask(id int64) {
	if !s.indexing() {
		return
	}
	go func() {
		if err := s.meili.DeleteTask(id); err != nil {
			log.Printf("search: delete task %d: %v", id, err)
		}
	}()
}

// Loader reads every searchable record for a full reindex.
type Loader interface {
	LoadAllRecords(ctx context.Context) ([]ListRecord, []TaskRecord, error)
}

// ReindexAll reads all entities from loader and pushes them to Meilisearch.
func (s *Service) ReindexAll(ctx context.Context, loader Loader) {
	if !s.indexing() || loader == nil {
		return
	}
	lists, tasks, err := loader.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexLists(lists); err != nil {
		log.Printf("search: reindex lists: %v", err)
	}
	if err := s.meili.IndexTasks(tasks); err != nil {
		log.Printf("search: reindex tasks: %v", err)
	}
	log.Printf("search: reindexed %d lists and %d tasks", len(lists), len(tasks))
}

// visible drops hits on lists outside allowed. The index may lag behind a
// revoked grant, so the filter is applied again here.
func visible(results []Result, allowed []int64) []Result {
	set := make(map[int64]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	filtered := make([]Result, 0, len(results))
	for _, result := range results {
		if _, ok := set[result.ListID]; ok {
			filtered = append(filtered, result)
		}
	}
	return filtered
}
