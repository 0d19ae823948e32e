package tags

import "github.com/recall-app/recall-server/internal/domain"

// Deduplicate removes records whose canonical tag set duplicates an
// earlier-kept record's canonical tag set. The earliest-encountered record
// always wins; output preserves input order among kept records (stable
// filter, no resort). Records with zero tags share the empty key and
// collapse to the first of them.
//
// The input slice is never mutated; the returned slice is fresh.
func Deduplicate(records []*domain.Record) []*domain.Record {
	seen := make(map[string]struct{}, len(records))
	kept := make([]*domain.Record, 0, len(records))

	for _, r := range records {
		key := RecordKey(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, r)
	}

	return kept
}
