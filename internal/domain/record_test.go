package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"simple", "go badger bleve", []string{"go", "badger", "bleve"}},
		{"collapses whitespace", "  go \t badger  ", []string{"go", "badger"}},
		{"empty", "", nil},
		{"whitespace only", "   \t ", nil},
		{"single", "go", []string{"go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTags(tt.content))
		})
	}
}

func TestRecord_Content(t *testing.T) {
	r := &Record{Tags: []string{"go", "badger"}}
	assert.Equal(t, "go badger", r.Content())
}

func TestRecord_Clone(t *testing.T) {
	now := time.Now()
	r := &Record{ID: "rec-1", Tags: []string{"a", "b"}, CreatedAt: now, UpdatedAt: now}

	cp := r.Clone()
	cp.Tags[0] = "mutated"

	assert.Equal(t, "a", r.Tags[0], "clone must not share tag storage")
	assert.Equal(t, r.ID, cp.ID)
}

func TestRecord_Clone_Nil(t *testing.T) {
	var r *Record
	assert.Nil(t, r.Clone())
}
