// Package tags implements the tag-query engine: canonicalization,
// prefix-aware query matching, canonical-set deduplication, and raw-tag
// frequency aggregation over record collections.
package tags

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/recall-app/recall-server/internal/domain"
)

// Canonicalize returns the comparison form of a tag: a Unicode case fold.
// Tokens arrive pre-trimmed from whitespace splitting, so no further
// trimming happens here. Any string input is valid.
func Canonicalize(tag string) string {
	return cases.Fold().String(tag)
}

// CanonicalSet returns the canonicalized form of every tag, sorted
// lexicographically. The result is a fresh slice.
func CanonicalSet(rawTags []string) []string {
	canonical := make([]string, len(rawTags))
	for i, t := range rawTags {
		canonical[i] = Canonicalize(t)
	}
	slices.Sort(canonical)
	return canonical
}

// Key derives the canonical tag-set key for a record's tags: each canonical
// tag is length-prefixed before joining, so a tag containing the join
// delimiter cannot collide with a different tag set. Records with equal keys
// are semantically identical regardless of tag order or casing.
func Key(rawTags []string) string {
	canonical := CanonicalSet(rawTags)

	var b strings.Builder
	for _, t := range canonical {
		b.WriteString(strconv.Itoa(len(t)))
		b.WriteByte(':')
		b.WriteString(t)
		b.WriteByte(',')
	}
	return b.String()
}

// RecordKey derives the canonical tag-set key for a record.
func RecordKey(r *domain.Record) string {
	return Key(r.Tags)
}
