package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "rebuildSearchIndex",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/reindex",
		Summary:     "Rebuild search index",
		Description: "Drops the search index and reindexes every stored record",
		Tags:        []string{"Admin"},
	}, s.handleRebuildIndex)

	huma.Register(s.api, huma.Operation{
		OperationID: "reloadView",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/reload",
		Summary:     "Reload record view",
		Description: "Reloads the deduplicated in-memory view from the store",
		Tags:        []string{"Admin"},
	}, s.handleReloadView)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportSnapshot",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/export",
		Summary:     "Export snapshot",
		Description: "Writes a JSON snapshot of every stored record to the export directory",
		Tags:        []string{"Admin"},
	}, s.handleExportSnapshot)
}

// === DTOs ===

// ReindexResponse reports the result of an index rebuild.
type ReindexResponse struct {
	Message   string `json:"message" doc:"Status message"`
	Documents uint64 `json:"documents" doc:"Indexed document count after rebuild"`
}

// ReindexOutput wraps the reindex response for Huma.
type ReindexOutput struct {
	Body ReindexResponse
}

// ExportResponse reports a written snapshot.
type ExportResponse struct {
	Path string `json:"path" doc:"Path of the written snapshot file"`
}

// ExportOutput wraps the export response for Huma.
type ExportOutput struct {
	Body ExportResponse
}

// === Handlers ===

func (s *Server) handleRebuildIndex(ctx context.Context, _ *struct{}) (*ReindexOutput, error) {
	if err := s.services.Search.RebuildIndex(ctx); err != nil {
		return nil, err
	}

	count, err := s.services.Search.DocumentCount()
	if err != nil {
		return nil, err
	}

	return &ReindexOutput{
		Body: ReindexResponse{
			Message:   "Search index rebuilt",
			Documents: count,
		},
	}, nil
}

func (s *Server) handleReloadView(ctx context.Context, _ *struct{}) (*ViewOutput, error) {
	if err := s.services.Record.Load(ctx); err != nil {
		return nil, err
	}

	return &ViewOutput{Body: s.buildViewResponse()}, nil
}

func (s *Server) handleExportSnapshot(ctx context.Context, _ *struct{}) (*ExportOutput, error) {
	if s.services.Exporter == nil {
		return nil, huma.Error503ServiceUnavailable("export is not configured")
	}

	path, err := s.services.Exporter.Export(ctx)
	if err != nil {
		return nil, err
	}

	return &ExportOutput{Body: ExportResponse{Path: path}}, nil
}
