// Package main provides a read-only inspection tool for the Badger record store.
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/recall-app/recall-server/internal/domain"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Recall/data")
	}
	dbPath := filepath.Join(dataPath, "db")

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Record Store Inspection ===")
	fmt.Println()

	recordCount := 0
	indexCount := 0
	tagCounts := make(map[string]int)

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			switch {
			case strings.HasPrefix(key, "record:"):
				err := item.Value(func(val []byte) error {
					var r domain.Record
					if err := json.Unmarshal(val, &r); err != nil {
						return fmt.Errorf("corrupt record at %s: %w", key, err)
					}
					recordCount++
					for _, tag := range r.Tags {
						tagCounts[tag]++
					}
					return nil
				})
				if err != nil {
					return err
				}
			case strings.HasPrefix(key, "idx:records:key:"):
				indexCount++
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Inspection failed: %v", err)
	}

	fmt.Printf("Records:     %d\n", recordCount)
	fmt.Printf("Key index:   %d entries\n", indexCount)
	if recordCount != indexCount {
		fmt.Printf("WARNING: record/index count mismatch (%d records, %d index entries)\n", recordCount, indexCount)
	}
	fmt.Println()

	if len(tagCounts) == 0 {
		return
	}

	type tagCount struct {
		tag   string
		count int
	}
	sorted := make([]tagCount, 0, len(tagCounts))
	for tag, n := range tagCounts {
		sorted = append(sorted, tagCount{tag, n})
	}
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].count != sorted[b].count {
			return sorted[a].count > sorted[b].count
		}
		return sorted[a].tag < sorted[b].tag
	})

	fmt.Printf("Distinct tags: %d\n", len(sorted))
	fmt.Println("Top tags:")
	for i, tc := range sorted {
		if i >= 15 {
			break
		}
		fmt.Printf("  %-20s %d\n", tc.tag, tc.count)
	}
}
