package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recall-app/recall-server/internal/domain"
	"github.com/recall-app/recall-server/internal/store"
)

func (s *Server) registerRecordRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listRecords",
		Method:      http.MethodGet,
		Path:        "/api/v1/records",
		Summary:     "List records",
		Description: "Returns a paginated page of stored records in creation order",
		Tags:        []string{"Records"},
	}, s.handleListRecords)

	huma.Register(s.api, huma.Operation{
		OperationID: "createRecord",
		Method:      http.MethodPost,
		Path:        "/api/v1/records",
		Summary:     "Create record",
		Description: "Creates a record from whitespace-separated tag content",
		Tags:        []string{"Records"},
	}, s.handleCreateRecord)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecord",
		Method:      http.MethodGet,
		Path:        "/api/v1/records/{id}",
		Summary:     "Get record",
		Description: "Returns a record by ID",
		Tags:        []string{"Records"},
	}, s.handleGetRecord)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateRecord",
		Method:      http.MethodPut,
		Path:        "/api/v1/records/{id}",
		Summary:     "Update record",
		Description: "Replaces a record's tags with new content",
		Tags:        []string{"Records"},
	}, s.handleUpdateRecord)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteRecord",
		Method:      http.MethodDelete,
		Path:        "/api/v1/records/{id}",
		Summary:     "Delete record",
		Description: "Deletes a record. Deleting an already-deleted record succeeds.",
		Tags:        []string{"Records"},
	}, s.handleDeleteRecord)
}

// === DTOs ===

// RecordResponse contains record data in API responses.
type RecordResponse struct {
	ID        string    `json:"id" doc:"Record ID"`
	Tags      []string  `json:"tags" doc:"Tags in entry order"`
	Content   string    `json:"content" doc:"Tags joined into editable content"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

func toRecordResponse(r *domain.Record) RecordResponse {
	return RecordResponse{
		ID:        r.ID,
		Tags:      r.Tags,
		Content:   r.Content(),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// ListRecordsInput contains parameters for listing records.
type ListRecordsInput struct {
	Limit  int    `query:"limit" validate:"omitempty,gte=1,lte=1000" doc:"Max records per page (default 100)"`
	Cursor string `query:"cursor" validate:"omitempty,max=200" doc:"Opaque pagination cursor"`
}

// ListRecordsResponse contains a page of records.
type ListRecordsResponse struct {
	Records    []RecordResponse `json:"records" doc:"Records in creation order"`
	NextCursor string           `json:"next_cursor,omitempty" doc:"Cursor for the next page"`
	HasMore    bool             `json:"has_more" doc:"Whether more records follow"`
}

// ListRecordsOutput wraps the list records response for Huma.
type ListRecordsOutput struct {
	Body ListRecordsResponse
}

// CreateRecordRequest is the request body for creating a record.
type CreateRecordRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1024" doc:"Whitespace-separated tags"`
}

// CreateRecordInput wraps the create record request for Huma.
type CreateRecordInput struct {
	Body CreateRecordRequest
}

// RecordOutput wraps a single record response for Huma.
type RecordOutput struct {
	Body RecordResponse
}

// GetRecordInput contains parameters for getting a record.
type GetRecordInput struct {
	ID string `path:"id" doc:"Record ID"`
}

// UpdateRecordRequest is the request body for updating a record.
type UpdateRecordRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1024" doc:"Whitespace-separated tags"`
}

// UpdateRecordInput wraps the update record request for Huma.
type UpdateRecordInput struct {
	ID   string `path:"id" doc:"Record ID"`
	Body UpdateRecordRequest
}

// DeleteRecordInput contains parameters for deleting a record.
type DeleteRecordInput struct {
	ID string `path:"id" doc:"Record ID"`
}

// MessageResponse contains a simple status message.
type MessageResponse struct {
	Message string `json:"message" doc:"Status message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleListRecords(ctx context.Context, input *ListRecordsInput) (*ListRecordsOutput, error) {
	params := store.PaginationParams{
		Limit:  input.Limit,
		Cursor: input.Cursor,
	}
	params.Validate()

	page, err := s.store.ListRecords(ctx, params)
	if err != nil {
		return nil, err
	}

	resp := ListRecordsResponse{
		Records:    make([]RecordResponse, len(page.Items)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
	for i, r := range page.Items {
		resp.Records[i] = toRecordResponse(r)
	}

	return &ListRecordsOutput{Body: resp}, nil
}

func (s *Server) handleCreateRecord(ctx context.Context, input *CreateRecordInput) (*RecordOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Body.Content) == "" {
		return nil, huma.Error400BadRequest("content must contain at least one tag")
	}

	record, err := s.services.Record.CreateRecord(ctx, input.Body.Content)
	if err != nil {
		return nil, err
	}

	return &RecordOutput{Body: toRecordResponse(record)}, nil
}

func (s *Server) handleGetRecord(ctx context.Context, input *GetRecordInput) (*RecordOutput, error) {
	record, err := s.store.GetRecord(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &RecordOutput{Body: toRecordResponse(record)}, nil
}

func (s *Server) handleUpdateRecord(ctx context.Context, input *UpdateRecordInput) (*RecordOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	record, err := s.services.Record.UpdateRecord(ctx, input.ID, input.Body.Content)
	if err != nil {
		return nil, err
	}

	return &RecordOutput{Body: toRecordResponse(record)}, nil
}

func (s *Server) handleDeleteRecord(ctx context.Context, input *DeleteRecordInput) (*MessageOutput, error) {
	if err := s.services.Record.DeleteRecord(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Record deleted"}}, nil
}
