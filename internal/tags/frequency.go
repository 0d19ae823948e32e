package tags

import (
	"sort"

	"github.com/recall-app/recall-server/internal/domain"
)

// Aggregate computes the tag frequency table for a record collection: one
// entry per distinct raw tag, counting the records that carry it, sorted by
// count descending. Ties keep first-seen insertion order, not alphabetical.
//
// Counting is on the raw tag form — two tags differing only in case are
// distinct rows here, while record deduplication canonicalizes. The
// asymmetry is intentional: the cloud displays the casing the user typed,
// duplicate records still collapse.
func Aggregate(records []*domain.Record) []domain.TagFrequency {
	order := make([]string, 0)
	counts := make(map[string]int)

	for _, r := range records {
		for _, tag := range r.Tags {
			if _, seen := counts[tag]; !seen {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	entries := make([]domain.TagFrequency, len(order))
	for i, tag := range order {
		entries[i] = domain.TagFrequency{Tag: tag, Count: counts[tag]}
	}

	// SliceStable keeps insertion order among equal counts.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	return entries
}
