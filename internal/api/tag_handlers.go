package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recall-app/recall-server/internal/tags"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTagFrequencies",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tag frequencies",
		Description: "Aggregates raw-tag frequencies over all records, count descending with first-seen ties",
		Tags:        []string{"Tags"},
	}, s.handleListTagFrequencies)
}

// === DTOs ===

// TagFrequenciesResponse contains aggregated tag counts.
type TagFrequenciesResponse struct {
	Tags  []TagFrequencyResponse `json:"tags" doc:"Tags with occurrence counts"`
	Total int                    `json:"total" doc:"Number of distinct tags"`
}

// TagFrequenciesOutput wraps the tag frequencies response for Huma.
type TagFrequenciesOutput struct {
	Body TagFrequenciesResponse
}

// === Handlers ===

func (s *Server) handleListTagFrequencies(_ context.Context, _ *struct{}) (*TagFrequenciesOutput, error) {
	freqs := tags.Aggregate(s.services.Record.Records())

	resp := TagFrequenciesResponse{
		Tags:  make([]TagFrequencyResponse, len(freqs)),
		Total: len(freqs),
	}
	for i, f := range freqs {
		resp.Tags[i] = TagFrequencyResponse{Tag: f.Tag, Count: f.Count}
	}

	return &TagFrequenciesOutput{Body: resp}, nil
}
