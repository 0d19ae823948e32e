package store

import (
	"context"

	"github.com/recall-app/recall-server/internal/domain"
)

// RecordStore is the persistence contract for records. Both the Badger and
// SQLite backends implement it.
type RecordStore interface {
	CreateRecord(ctx context.Context, r *domain.Record) error
	GetRecord(ctx context.Context, recordID string) (*domain.Record, error)
	UpdateRecord(ctx context.Context, r *domain.Record) error
	DeleteRecord(ctx context.Context, recordID string) error
	ListRecords(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.Record], error)
	AllRecords(ctx context.Context) ([]*domain.Record, error)
	CountRecords(ctx context.Context) (int, error)
	Close() error
}

// EventEmitter is the interface for emitting SSE events.
// Stores use this to broadcast changes without depending on SSE details.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter for testing.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// SearchIndexer is the interface for updating the search index.
// Stores use this to keep search in sync without depending on the search
// implementation.
type SearchIndexer interface {
	IndexRecord(ctx context.Context, r *domain.Record) error
	DeleteRecord(ctx context.Context, recordID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexRecord is a no-op.
func (NoopSearchIndexer) IndexRecord(context.Context, *domain.Record) error { return nil }

// DeleteRecord is a no-op.
func (NoopSearchIndexer) DeleteRecord(context.Context, string) error { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer for testing.
func NewNoopSearchIndexer() SearchIndexer {
	return NoopSearchIndexer{}
}
