package search

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/recall-app/recall-server/internal/tags"
)

// SearchParams configures a search query.
//
// The query text is split into whitespace tokens. All tokens except the last
// must match a tag exactly (after case folding); the last token matches as a
// prefix, which is what makes type-ahead work mid-word.
type SearchParams struct {
	Query string // User's raw query text

	// Pagination
	Limit  int
	Offset int
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:  100,
		Offset: 0,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit represents a single search result.
type SearchHit struct {
	ID    string   `json:"id"`
	Score float64  `json:"score"`
	Tags  []string `json:"tags"`
}

// Search executes a tag search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = 100
	}

	searchQuery := buildTagQuery(tags.Tokenize(params.Query))

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)
	// Insertion order, not relevance: every hit satisfies the conjunction,
	// so scores carry no useful ranking signal.
	searchRequest.SortBy([]string{"created_at", "_id"})
	searchRequest.Fields = []string{"id", "tags"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		switch v := hit.Fields["tags"].(type) {
		case string:
			// Bleve flattens single-element arrays to a scalar.
			searchHit.Tags = []string{v}
		case []interface{}:
			for _, tag := range v {
				if t, ok := tag.(string); ok {
					searchHit.Tags = append(searchHit.Tags, t)
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	return result, nil
}

// buildTagQuery constructs the Bleve query from query tokens.
//
// Complete tokens become exact term queries on canonical_tags; the trailing
// token becomes a prefix query. All are combined with AND, so every token
// must be satisfied by some tag on the record.
func buildTagQuery(tokens []string) query.Query {
	if len(tokens) == 0 {
		return bleve.NewMatchAllQuery()
	}

	queries := make([]query.Query, 0, len(tokens))

	for _, token := range tokens[:len(tokens)-1] {
		tq := bleve.NewTermQuery(tags.Canonicalize(token))
		tq.SetField("canonical_tags")
		queries = append(queries, tq)
	}

	trailing := bleve.NewPrefixQuery(tags.Canonicalize(tokens[len(tokens)-1]))
	trailing.SetField("canonical_tags")
	queries = append(queries, trailing)

	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}
