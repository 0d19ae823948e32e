// Package search provides tag search over records using Bleve.
// Queries are conjunctions of exact tag terms, with the trailing token
// treated as a prefix for type-ahead behavior.
package search

import (
	"github.com/recall-app/recall-server/internal/domain"
	"github.com/recall-app/recall-server/internal/tags"
)

// SearchDocument is the document structure for the Bleve index.
//
// Tags are indexed twice: the raw as-entered form for display, and the
// case-folded canonical form that all matching runs against.
type SearchDocument struct {
	ID string `json:"id"`

	// Raw tags, stored for retrieval in search results.
	Tags []string `json:"tags"`

	// Canonical (case-folded) tags; every query term targets this field.
	CanonicalTags []string `json:"canonical_tags"`

	// Timestamps for sorting. Unix millis.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our mapping
// uses lowercase names, so we convert explicitly.
func (d *SearchDocument) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":             d.ID,
		"tags":           d.Tags,
		"canonical_tags": d.CanonicalTags,
		"created_at":     d.CreatedAt,
		"updated_at":     d.UpdatedAt,
	}
}

// RecordToSearchDocument converts a domain Record to a SearchDocument.
func RecordToSearchDocument(r *domain.Record) *SearchDocument {
	canonical := make([]string, len(r.Tags))
	for i, tag := range r.Tags {
		canonical[i] = tags.Canonicalize(tag)
	}

	return &SearchDocument{
		ID:            r.ID,
		Tags:          append([]string(nil), r.Tags...),
		CanonicalTags: canonical,
		CreatedAt:     r.CreatedAt.UnixMilli(),
		UpdatedAt:     r.UpdatedAt.UnixMilli(),
	}
}
