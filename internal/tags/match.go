package tags

import (
	"strings"

	"github.com/recall-app/recall-server/internal/domain"
)

// Tokenize splits a raw query string into whitespace-delimited tokens.
// A blank or whitespace-only query yields nil, which callers treat as
// "match all".
func Tokenize(query string) []string {
	return strings.Fields(query)
}

// Matches reports whether a record satisfies the query tokens.
//
// All tokens but the last must be exact canonical matches against the
// record's tags. The last token is treated as the one still being typed and
// matches if any canonical tag has it as a prefix; an empty trailing token
// trivially matches any record with at least one tag. Matching is prefix
// only — no fuzzy or substring semantics.
//
// An empty token slice is the caller's "match all" case and returns true.
func Matches(r *domain.Record, queryTokens []string) bool {
	if len(queryTokens) == 0 {
		return true
	}

	canonical := make([]string, len(r.Tags))
	for i, t := range r.Tags {
		canonical[i] = Canonicalize(t)
	}

	complete := queryTokens[:len(queryTokens)-1]
	incomplete := Canonicalize(queryTokens[len(queryTokens)-1])

	for _, token := range complete {
		want := Canonicalize(token)
		found := false
		for _, tag := range canonical {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, tag := range canonical {
		if strings.HasPrefix(tag, incomplete) {
			return true
		}
	}
	return false
}

// Filter returns the records matching the query tokens, preserving order.
// The input slice is never mutated.
func Filter(records []*domain.Record, queryTokens []string) []*domain.Record {
	if len(queryTokens) == 0 {
		return slicesClone(records)
	}

	matched := make([]*domain.Record, 0, len(records))
	for _, r := range records {
		if Matches(r, queryTokens) {
			matched = append(matched, r)
		}
	}
	return matched
}

func slicesClone(records []*domain.Record) []*domain.Record {
	out := make([]*domain.Record, len(records))
	copy(out, records)
	return out
}
