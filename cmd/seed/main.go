// Package main provides a tool to seed the record store with sample data.
//
// This writes tag-addressed sample records so search, dedup, and view
// behavior can be exercised against a populated store.
//
// Usage:
//
//	DATA_PATH=~/Recall/data go run ./cmd/seed
//	DATA_PATH=~/Recall/data go run ./cmd/seed --count 100
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/recall-app/recall-server/internal/domain"
	"github.com/recall-app/recall-server/internal/id"
	"github.com/recall-app/recall-server/internal/store"
)

var count = flag.Int("count", 50, "Number of sample records to create")

// Tag pools combined at random into record contents.
var (
	topics     = []string{"go", "rust", "python", "sqlite", "badger", "bleve", "http", "sse", "debounce", "search"}
	qualifiers = []string{"backend", "frontend", "tooling", "notes", "reading", "ideas", "draft", "archive"}
)

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Recall/data")
	}
	dbPath := filepath.Join(dataPath, "db")

	fmt.Printf("Opening record store at: %s\n", dbPath)

	s, err := store.New(dbPath, nil, store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	created := 0
	skipped := 0
	for range *count {
		content := sampleContent(rng)

		recordID, err := id.Generate("rec")
		if err != nil {
			log.Fatalf("Failed to generate ID: %v", err)
		}

		now := time.Now().UTC()
		record := &domain.Record{
			ID:        recordID,
			Tags:      domain.ParseTags(content),
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := s.CreateRecord(ctx, record); err != nil {
			if errors.Is(err, store.ErrDuplicateRecord) {
				skipped++
				continue
			}
			log.Fatalf("Failed to create record: %v", err)
		}
		created++
	}

	total, err := s.CountRecords(ctx)
	if err != nil {
		log.Fatalf("Failed to count records: %v", err)
	}

	fmt.Printf("Created %d records (%d duplicates skipped), store now holds %d\n", created, skipped, total)
}

// sampleContent builds a random two- or three-tag content line.
func sampleContent(rng *rand.Rand) string {
	content := topics[rng.Intn(len(topics))] + " " + qualifiers[rng.Intn(len(qualifiers))]
	if rng.Intn(2) == 0 {
		content += " " + topics[rng.Intn(len(topics))]
	}
	return content
}
