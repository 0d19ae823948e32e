package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerViewRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getView",
		Method:      http.MethodGet,
		Path:        "/api/v1/view",
		Summary:     "Get current view",
		Description: "Returns the records visible for the active query, with display mode and tag frequencies",
		Tags:        []string{"View"},
	}, s.handleGetView)

	huma.Register(s.api, huma.Operation{
		OperationID: "setViewQuery",
		Method:      http.MethodPost,
		Path:        "/api/v1/view/query",
		Summary:     "Set view query",
		Description: "Feeds a query-text change into the view. Results are filtered locally at once; a debounced index search confirms them.",
		Tags:        []string{"View"},
	}, s.handleSetViewQuery)
}

// === DTOs ===

// TagFrequencyResponse is one tag with its occurrence count.
type TagFrequencyResponse struct {
	Tag   string `json:"tag" doc:"Raw tag text as first entered"`
	Count int    `json:"count" doc:"Occurrences across visible records"`
}

// ViewResponse describes the current record view.
type ViewResponse struct {
	Query         string                 `json:"query" doc:"Active query text"`
	Records       []RecordResponse       `json:"records" doc:"Visible records in insertion order"`
	Total         int                    `json:"total" doc:"Number of visible records"`
	Mode          string                 `json:"mode" doc:"Display mode: list or cloud"`
	Frequencies   []TagFrequencyResponse `json:"frequencies" doc:"Tag frequencies over visible records, count descending"`
	DebounceState string                 `json:"debounce_state" doc:"Search coordinator state: idle, pending, or in-flight"`
}

// ViewOutput wraps the view response for Huma.
type ViewOutput struct {
	Body ViewResponse
}

// SetViewQueryRequest is the request body for changing the view query.
type SetViewQueryRequest struct {
	Query string `json:"query" validate:"max=200" doc:"Query text; blank clears the filter"`
}

// SetViewQueryInput wraps the set view query request for Huma.
type SetViewQueryInput struct {
	Body SetViewQueryRequest
}

// === Handlers ===

func (s *Server) handleGetView(_ context.Context, _ *struct{}) (*ViewOutput, error) {
	return &ViewOutput{Body: s.buildViewResponse()}, nil
}

func (s *Server) handleSetViewQuery(_ context.Context, input *SetViewQueryInput) (*ViewOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	s.services.Record.QueryChanged(input.Body.Query)

	// The response reflects the immediate local filter; the debounced
	// index search may refine it and is observable via the SSE stream
	// or a later GET /view.
	return &ViewOutput{Body: s.buildViewResponse()}, nil
}

func (s *Server) buildViewResponse() ViewResponse {
	results := s.services.Record.Results()
	freqs := s.services.Record.Frequencies()

	resp := ViewResponse{
		Query:         s.services.Record.Query(),
		Records:       make([]RecordResponse, len(results)),
		Total:         len(results),
		Mode:          string(s.services.Record.Mode()),
		Frequencies:   make([]TagFrequencyResponse, len(freqs)),
		DebounceState: s.services.Record.DebounceState().String(),
	}
	for i, r := range results {
		resp.Records[i] = toRecordResponse(r)
	}
	for i, f := range freqs {
		resp.Frequencies[i] = TagFrequencyResponse{Tag: f.Tag, Count: f.Count}
	}
	return resp
}
