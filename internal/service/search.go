package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/recall-app/recall-server/internal/domain"
	"github.com/recall-app/recall-server/internal/search"
	"github.com/recall-app/recall-server/internal/store"
)

// SearchService provides tag search over records.
// It bridges the search index with the data store, handling index rebuilds
// and hydrating search hits back into full records.
type SearchService struct {
	index  *search.SearchIndex
	store  store.RecordStore
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, recordStore store.RecordStore, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  recordStore,
		logger: logger,
	}
}

// Search executes a raw index query.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	return s.index.Search(ctx, params)
}

// SearchRecords runs a query and hydrates the hits into full records from
// the store. Hits whose record has been deleted since indexing are skipped.
func (s *SearchService) SearchRecords(ctx context.Context, query string) ([]*domain.Record, error) {
	params := search.DefaultSearchParams()
	params.Query = query

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}

	records := make([]*domain.Record, 0, len(result.Hits))
	for _, hit := range result.Hits {
		r, err := s.store.GetRecord(ctx, hit.ID)
		if errors.Is(err, store.ErrRecordNotFound) {
			// Index lag after a delete; drop the stale hit.
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, nil
}

// RebuildIndex drops the index and reindexes every stored record.
// Called on startup and exposed for admin maintenance.
func (s *SearchService) RebuildIndex(ctx context.Context) error {
	records, err := s.store.AllRecords(ctx)
	if err != nil {
		return fmt.Errorf("load records for reindex: %w", err)
	}

	if err := s.index.Rebuild(records); err != nil {
		return err
	}

	s.logger.Info("search index rebuilt", "records", len(records))
	return nil
}

// DocumentCount returns the number of indexed records.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}
