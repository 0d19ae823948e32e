package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/recall-app/recall-server/internal/domain"
	"github.com/recall-app/recall-server/internal/events"
	"github.com/recall-app/recall-server/internal/tags"
)

// Key prefixes for record storage.
const (
	recordPrefix      = "record:"          // record:{id} → Record JSON
	recordByKeyPrefix = "idx:records:key:" // idx:records:key:{canonicalKey} → recordID
)

// CreateRecord persists a new record. The record's canonical tag-set key must
// be unique; a second record with the same tag set (ignoring order and case)
// is rejected with ErrDuplicateRecord.
func (s *Store) CreateRecord(ctx context.Context, r *domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.ID == "" || len(r.Tags) == 0 {
		return ErrInvalidInput
	}

	keyIdx := []byte(recordByKeyPrefix + tags.RecordKey(r))

	err := s.db.Update(func(txn *badger.Txn) error {
		// Enforce canonical tag-set uniqueness.
		if _, err := txn.Get(keyIdx); err == nil {
			return ErrDuplicateRecord
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(recordPrefix+r.ID), data); err != nil {
			return err
		}

		return txn.Set(keyIdx, []byte(r.ID))
	})
	if err != nil {
		return err
	}

	s.indexAsync(r)
	s.eventEmitter.Emit(events.NewRecordCreatedEvent(r))
	return nil
}

// GetRecord retrieves a record by ID.
func (s *Store) GetRecord(ctx context.Context, recordID string) (*domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var r domain.Record
	err := s.get([]byte(recordPrefix+recordID), &r)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRecord replaces a stored record. The canonical-key index is moved to
// the new tag set; collisions on update are tolerated (the index keeps its
// first claimant) and surface to the user as duplicates in the visible set.
func (s *Store) UpdateRecord(ctx context.Context, r *domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.ID == "" || len(r.Tags) == 0 {
		return ErrInvalidInput
	}

	existing, err := s.GetRecord(ctx, r.ID)
	if err != nil {
		return err
	}

	oldIdx := []byte(recordByKeyPrefix + tags.RecordKey(existing))
	newIdx := []byte(recordByKeyPrefix + tags.RecordKey(r))

	err = s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(recordPrefix+r.ID), data); err != nil {
			return err
		}

		// Release the old index entry if this record owns it.
		if owner, err := indexOwner(txn, oldIdx); err != nil {
			return err
		} else if owner == r.ID {
			if err := txn.Delete(oldIdx); err != nil {
				return err
			}
		}

		// Claim the new index entry only if it is free.
		if _, err := txn.Get(newIdx); errors.Is(err, badger.ErrKeyNotFound) {
			return txn.Set(newIdx, []byte(r.ID))
		} else if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.indexAsync(r)
	s.eventEmitter.Emit(events.NewRecordUpdatedEvent(r))
	return nil
}

// DeleteRecord removes a record and its index entries.
// Deleting a missing record returns ErrRecordNotFound; callers that want
// idempotent semantics treat that as success.
func (s *Store) DeleteRecord(ctx context.Context, recordID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	existing, err := s.GetRecord(ctx, recordID)
	if err != nil {
		return err
	}

	keyIdx := []byte(recordByKeyPrefix + tags.RecordKey(existing))

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(recordPrefix + recordID)); err != nil {
			return err
		}

		if owner, err := indexOwner(txn, keyIdx); err != nil {
			return err
		} else if owner == recordID {
			return txn.Delete(keyIdx)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.deleteFromIndexAsync(recordID)
	s.eventEmitter.Emit(events.NewRecordDeletedEvent(recordID, time.Now()))
	return nil
}

// AllRecords returns every record ordered by creation time (oldest first,
// record ID as tiebreaker). This is the load path for the in-memory view.
func (s *Store) AllRecords(ctx context.Context) ([]*domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(recordPrefix)
	var records []*domain.Record

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchSize = 100

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r domain.Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			})
			if err != nil {
				continue
			}
			records = append(records, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})

	return records, nil
}

// ListRecords returns a page of records in key order.
func (s *Store) ListRecords(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.Record], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params.Validate()
	startAfter, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, ErrInvalidInput.WithCause(err)
	}

	prefix := []byte(recordPrefix)
	result := &PaginatedResult[*domain.Record]{
		Items: make([]*domain.Record, 0, params.Limit),
	}
	var lastKey string

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchSize = min(params.Limit, 100)

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if startAfter != "" {
			seek = []byte(startAfter)
		}

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			if key == startAfter {
				continue // cursor is exclusive
			}
			if len(result.Items) >= params.Limit {
				result.HasMore = true
				return nil
			}

			var r domain.Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			})
			if err != nil {
				continue
			}
			result.Items = append(result.Items, &r)
			lastKey = key
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.HasMore {
		result.NextCursor = EncodeCursor(lastKey)
	}
	return result, nil
}

// CountRecords returns the total number of stored records.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	prefix := []byte(recordPrefix)
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}

// indexOwner returns the record ID stored under an index key, or "" if the
// key is absent.
func indexOwner(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var owner string
	err = item.Value(func(val []byte) error {
		owner = string(val)
		return nil
	})
	return owner, err
}

// indexAsync updates the search index without blocking the store operation.
func (s *Store) indexAsync(r *domain.Record) {
	clone := r.Clone()
	go func() {
		if err := s.searchIndexer.IndexRecord(context.Background(), clone); err != nil && s.logger != nil {
			s.logger.Warn("failed to index record", "record_id", clone.ID, "error", err)
		}
	}()
}

// deleteFromIndexAsync removes a record from the search index without
// blocking the store operation.
func (s *Store) deleteFromIndexAsync(recordID string) {
	go func() {
		if err := s.searchIndexer.DeleteRecord(context.Background(), recordID); err != nil && s.logger != nil {
			s.logger.Warn("failed to remove record from index", "record_id", recordID, "error", err)
		}
	}()
}
