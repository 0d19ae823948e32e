package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recall-app/recall-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search records",
		Description: "Tag search against the index. Complete tokens match whole tags; the trailing token matches as a prefix.",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching records.
type SearchInput struct {
	Query  string `query:"q" validate:"omitempty,max=200" doc:"Search query; empty matches all records"`
	Limit  int    `query:"limit" validate:"omitempty,gte=1,lte=1000" doc:"Max results (default 100)"`
	Offset int    `query:"offset" validate:"omitempty,gte=0" doc:"Pagination offset (default 0)"`
}

// SearchHitResult contains a single search result.
type SearchHitResult struct {
	ID   string   `json:"id" doc:"Record ID"`
	Tags []string `json:"tags" doc:"Tags in entry order with original casing"`
}

// SearchResponse contains search results.
type SearchResponse struct {
	Query  string            `json:"query" doc:"Original search query"`
	Total  uint64            `json:"total" doc:"Total matches"`
	TookMs int64             `json:"took_ms" doc:"Search duration in milliseconds"`
	Hits   []SearchHitResult `json:"hits" doc:"Matches in insertion order"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	params := search.DefaultSearchParams()
	params.Query = input.Query
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset

	s.logger.Debug("Search request received",
		"query", input.Query,
		"limit", params.Limit,
	)

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		s.logger.Error("Search failed", "error", err, "query", input.Query)
		return nil, err
	}

	resp := SearchResponse{
		Query:  input.Query,
		Total:  result.Total,
		TookMs: result.TookMs,
		Hits:   make([]SearchHitResult, len(result.Hits)),
	}
	for i, hit := range result.Hits {
		resp.Hits[i] = SearchHitResult{
			ID:   hit.ID,
			Tags: hit.Tags,
		}
	}

	return &SearchOutput{Body: resp}, nil
}
