package domain

import (
	"strings"
	"time"
)

// Record represents one user-created entry: arbitrary content addressed by a
// set of tags. Tags keep the raw form and order the user typed them in;
// equality between records is decided on the canonical tag set, which is
// derived, never stored.
type Record struct {
	ID        string    `json:"id"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Content returns the record's tags joined back into the single
// space-separated string the wire contracts carry.
func (r *Record) Content() string {
	return strings.Join(r.Tags, " ")
}

// Touch updates the UpdatedAt timestamp.
func (r *Record) Touch() {
	r.UpdatedAt = time.Now()
}

// Clone returns a deep copy of the record. Used for optimistic-update
// snapshots so a rollback restores the exact prior value.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Tags = make([]string, len(r.Tags))
	copy(cp.Tags, r.Tags)
	return &cp
}

// ParseTags splits a raw content string into tags on whitespace.
// Empty and whitespace-only input yields nil.
func ParseTags(content string) []string {
	return strings.Fields(content)
}

// TagFrequency is one row of the tag frequency table: a raw tag string and
// the number of records carrying it.
type TagFrequency struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
