package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/recall-app/recall-server/internal/domain"
	"github.com/recall-app/recall-server/internal/events"
	"github.com/recall-app/recall-server/internal/store"
	"github.com/recall-app/recall-server/internal/tags"
)

// recordColumns is the ordered list of columns selected in record queries.
// Must match the scan order in scanRecord.
const recordColumns = `id, tags, created_at, updated_at`

// scanRecord scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Record.
func scanRecord(scanner interface{ Scan(dest ...any) error }) (*domain.Record, error) {
	var r domain.Record

	var (
		tagsJSON  string
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&r.ID,
		&tagsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags for record %s: %w", r.ID, err)
	}
	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	r.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// CreateRecord inserts a new record.
// Returns store.ErrDuplicateRecord when a record with the same canonical
// tag-set key already exists.
func (s *Store) CreateRecord(ctx context.Context, r *domain.Record) error {
	if r.ID == "" || len(r.Tags) == 0 {
		return store.ErrInvalidInput
	}

	tagsJSON, err := json.Marshal(r.Tags)
	if err != nil {
		return err
	}
	canonicalKey := tags.RecordKey(r)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Duplicate detection happens on create only; see schema.sql.
	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM records WHERE canonical_key = ? LIMIT 1`, canonicalKey).Scan(&exists)
	if err == nil {
		return store.ErrDuplicateRecord
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (id, tags, canonical_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID,
		string(tagsJSON),
		canonicalKey,
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.indexAsync(r)
	s.emitter.Emit(events.NewRecordCreatedEvent(r))
	return nil
}

// GetRecord retrieves a record by its ID.
// Returns store.ErrRecordNotFound if the record does not exist.
func (s *Store) GetRecord(ctx context.Context, recordID string) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, recordID)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateRecord replaces a stored record's tags and timestamps.
// Returns store.ErrRecordNotFound if the record does not exist. Canonical-key
// collisions on update are tolerated.
func (s *Store) UpdateRecord(ctx context.Context, r *domain.Record) error {
	if r.ID == "" || len(r.Tags) == 0 {
		return store.ErrInvalidInput
	}

	tagsJSON, err := json.Marshal(r.Tags)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE records
		SET tags = ?, canonical_key = ?, updated_at = ?
		WHERE id = ?`,
		string(tagsJSON),
		tags.RecordKey(r),
		formatTime(r.UpdatedAt),
		r.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrRecordNotFound
	}

	s.indexAsync(r)
	s.emitter.Emit(events.NewRecordUpdatedEvent(r))
	return nil
}

// DeleteRecord removes a record.
// Returns store.ErrRecordNotFound if the record does not exist.
func (s *Store) DeleteRecord(ctx context.Context, recordID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, recordID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrRecordNotFound
	}

	s.deleteFromIndexAsync(recordID)
	s.emitter.Emit(events.NewRecordDeletedEvent(recordID, time.Now()))
	return nil
}

// AllRecords returns every record ordered by creation time (oldest first,
// record ID as tiebreaker).
func (s *Store) AllRecords(ctx context.Context) ([]*domain.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListRecords returns a page of records ordered by ID.
func (s *Store) ListRecords(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Record], error) {
	params.Validate()
	startAfter, err := store.DecodeCursor(params.Cursor)
	if err != nil {
		return nil, store.ErrInvalidInput.WithCause(err)
	}

	// Fetch one extra row to detect whether another page exists.
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE id > ?
		ORDER BY id
		LIMIT ?`,
		startAfter, params.Limit+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &store.PaginatedResult[*domain.Record]{
		Items: make([]*domain.Record, 0, params.Limit),
	}
	for rows.Next() {
		if len(result.Items) >= params.Limit {
			result.HasMore = true
			break
		}
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if result.HasMore {
		result.NextCursor = store.EncodeCursor(result.Items[len(result.Items)-1].ID)
	}
	return result, nil
}

// CountRecords returns the total number of stored records.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
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
