package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/recall-app/recall-server/internal/debounce"
	"github.com/recall-app/recall-server/internal/display"
	"github.com/recall-app/recall-server/internal/domain"
	apperrors "github.com/recall-app/recall-server/internal/errors"
	"github.com/recall-app/recall-server/internal/events"
	"github.com/recall-app/recall-server/internal/id"
	"github.com/recall-app/recall-server/internal/store"
	"github.com/recall-app/recall-server/internal/tags"
)

// SearchBackend resolves a query into matching records. Implemented by
// SearchService; tests substitute a fake.
type SearchBackend interface {
	SearchRecords(ctx context.Context, query string) ([]*domain.Record, error)
}

// RecordServiceOptions configures a RecordService.
type RecordServiceOptions struct {
	DebounceDelay time.Duration  // Delay before a typed query hits the search backend
	DisplayConfig display.Config // Thresholds for list/cloud mode detection
}

// RecordService owns the visible record set: a deduplicated, insertion-ordered
// view over the store, filtered by the current query.
//
// Mutations are optimistic: the view changes first, the store write follows,
// and a failed write restores exactly the affected record. Query changes are
// filtered locally right away, then confirmed by a debounced search whose
// resolution replaces the local result when it lands.
type RecordService struct {
	store    store.RecordStore
	searcher SearchBackend
	emitter  store.EventEmitter
	logger   *slog.Logger
	modeCfg  display.Config

	debouncer *debounce.Coordinator[[]*domain.Record]

	mu      sync.RWMutex
	records []*domain.Record // deduplicated full set, insertion order
	query   string
	results []*domain.Record // current visible results for the query
}

// NewRecordService creates a record service. Call Load before serving.
func NewRecordService(
	recordStore store.RecordStore,
	searcher SearchBackend,
	emitter store.EventEmitter,
	logger *slog.Logger,
	opts RecordServiceOptions,
) *RecordService {
	if emitter == nil {
		emitter = store.NewNoopEmitter()
	}
	if opts.DisplayConfig == (display.Config{}) {
		opts.DisplayConfig = display.DefaultConfig()
	}

	s := &RecordService{
		store:    recordStore,
		searcher: searcher,
		emitter:  emitter,
		logger:   logger,
		modeCfg:  opts.DisplayConfig,
	}

	s.debouncer = debounce.New(context.Background(), opts.DebounceDelay, debounce.Callbacks[[]*domain.Record]{
		Search:   s.performSearch,
		OnResult: s.applySearchResults,
		OnError:  s.keepLastGoodResults,
		OnClear:  s.clearSearch,
	})

	return s
}

// Load replaces the view with the deduplicated store contents and re-applies
// the current query. Duplicate records (same tag set ignoring order and case)
// are dropped, keeping the first occurrence.
func (s *RecordService) Load(ctx context.Context) error {
	all, err := s.store.AllRecords(ctx)
	if err != nil {
		return apperrors.Internal("load records").WithCause(err)
	}

	deduped := tags.Deduplicate(all)
	duplicates := len(all) - len(deduped)

	s.mu.Lock()
	s.records = deduped
	s.refilterLocked()
	s.mu.Unlock()

	if duplicates > 0 {
		s.logger.Warn("dropped duplicate records on load", "duplicates", duplicates)
	}
	s.logger.Info("record view loaded", "records", len(deduped), "duplicates", duplicates)
	s.emitter.Emit(events.NewRecordsReloadedEvent(len(deduped), duplicates))
	return nil
}

// Records returns the full deduplicated record set in insertion order.
func (s *RecordService) Records() []*domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Results returns the records currently visible for the active query.
func (s *RecordService) Results() []*domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.results)
}

// Query returns the active query text.
func (s *RecordService) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// QueryChanged feeds a query-text change into the service. The view is
// filtered locally at once; the debounced backend search confirms (or
// corrects) the local result when it resolves. Blank input clears the query
// synchronously, bypassing the debounce.
func (s *RecordService) QueryChanged(query string) {
	s.mu.Lock()
	s.query = query
	s.refilterLocked()
	s.mu.Unlock()

	s.debouncer.Input(query)
}

// CreateRecord parses content into tags and creates a record, updating the
// view optimistically before the store write.
func (s *RecordService) CreateRecord(ctx context.Context, content string) (*domain.Record, error) {
	// 1. Parse and validate tags.
	tagList := domain.ParseTags(content)
	if len(tagList) == 0 {
		return nil, apperrors.Validation("record must contain at least one tag")
	}

	// 2. Reject tag sets already present in the view.
	key := tags.Key(tagList)
	s.mu.RLock()
	for _, existing := range s.records {
		if tags.RecordKey(existing) == key {
			s.mu.RUnlock()
			return nil, apperrors.DuplicateRecord("a record with this tag set already exists")
		}
	}
	s.mu.RUnlock()

	// 3. Build the record.
	recordID, err := id.Generate("rec")
	if err != nil {
		return nil, apperrors.Internal("generate record id").WithCause(err)
	}
	now := time.Now()
	record := &domain.Record{
		ID:        recordID,
		Tags:      tagList,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// 4. Optimistic append.
	s.mu.Lock()
	s.records = append(s.records, record)
	s.refilterLocked()
	s.mu.Unlock()

	// 5. Persist; roll the view back on failure.
	if err := s.store.CreateRecord(ctx, record); err != nil {
		s.removeFromView(recordID)
		if apperrors.Is(err, store.ErrDuplicateRecord) {
			return nil, apperrors.DuplicateRecord("a record with this tag set already exists")
		}
		return nil, apperrors.Internal("create record").WithCause(err)
	}

	return record, nil
}

// UpdateRecord replaces a record's tags, updating the view optimistically.
// On store failure only the affected record is restored from its snapshot;
// other concurrent edits stay intact.
func (s *RecordService) UpdateRecord(ctx context.Context, recordID, content string) (*domain.Record, error) {
	// 1. Parse and validate tags.
	tagList := domain.ParseTags(content)
	if len(tagList) == 0 {
		return nil, apperrors.Validation("record must contain at least one tag")
	}

	// 2. Snapshot and optimistically apply.
	s.mu.Lock()
	idx := s.indexOfLocked(recordID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, apperrors.RecordNotFoundf("record %s not found", recordID)
	}
	snapshot := s.records[idx].Clone()
	updated := s.records[idx].Clone()
	updated.Tags = tagList
	updated.Touch()
	// Replace the element rather than mutating it: snapshots handed out by
	// Records/Results share the old pointer.
	s.records[idx] = updated
	s.refilterLocked()
	s.mu.Unlock()

	// 3. Persist; restore the exact snapshot on failure.
	if err := s.store.UpdateRecord(ctx, updated); err != nil {
		s.restoreInView(snapshot)
		if apperrors.Is(err, store.ErrRecordNotFound) {
			return nil, apperrors.RecordNotFoundf("record %s not found", recordID)
		}
		return nil, apperrors.Internal("update record").WithCause(err)
	}

	return updated, nil
}

// DeleteRecord removes a record from the view and the store. Deleting a
// record that is already gone is a success: the end state is identical.
func (s *RecordService) DeleteRecord(ctx context.Context, recordID string) error {
	// 1. Optimistic removal, remembering the exact position.
	s.mu.Lock()
	idx := s.indexOfLocked(recordID)
	var removed *domain.Record
	if idx >= 0 {
		removed = s.records[idx]
		s.records = slices.Delete(s.records, idx, idx+1)
		s.refilterLocked()
	}
	s.mu.Unlock()

	// 2. Persist. Not-found means the end state already holds.
	err := s.store.DeleteRecord(ctx, recordID)
	if err == nil || apperrors.Is(err, store.ErrRecordNotFound) {
		return nil
	}

	// 3. Reinsert at the original position on a real failure.
	if removed != nil {
		s.mu.Lock()
		if idx > len(s.records) {
			idx = len(s.records)
		}
		s.records = slices.Insert(s.records, idx, removed)
		s.refilterLocked()
		s.mu.Unlock()
	}
	return apperrors.Internal("delete record").WithCause(err)
}

// Frequencies aggregates raw-tag frequencies over the current results,
// ordered by count descending with first-seen ties. The aggregation is
// scoped to the records visible for the active query, so the tag cloud
// narrows along with the list; clear the query to aggregate the full set.
func (s *RecordService) Frequencies() []domain.TagFrequency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tags.Aggregate(s.results)
}

// Mode reports how the current results should be rendered.
func (s *RecordService) Mode() display.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return display.Detect(len(s.results), s.modeCfg)
}

// DebounceState exposes the search coordinator state for health reporting.
func (s *RecordService) DebounceState() debounce.State {
	return s.debouncer.State()
}

// Close stops the debounce coordinator.
func (s *RecordService) Close() {
	s.debouncer.Close()
}

// performSearch is the debounced search callback.
func (s *RecordService) performSearch(ctx context.Context, query string) ([]*domain.Record, error) {
	return s.searcher.SearchRecords(ctx, query)
}

// applySearchResults installs a resolved backend search, unless the query
// has moved on since the search was issued.
func (s *RecordService) applySearchResults(query string, records []*domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.query != query {
		return
	}
	s.results = tags.Deduplicate(records)
}

// keepLastGoodResults logs a failed search; the locally filtered results
// remain visible.
func (s *RecordService) keepLastGoodResults(query string, err error) {
	s.logger.Warn("search failed, keeping local results", "query", query, "error", err)
}

// clearSearch resets the results to the full view on blank input.
func (s *RecordService) clearSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tags.Tokenize(s.query) != nil {
		return
	}
	s.results = slices.Clone(s.records)
}

// refilterLocked recomputes results from the full set and the active query.
// Callers must hold mu.
func (s *RecordService) refilterLocked() {
	s.results = tags.Filter(s.records, tags.Tokenize(s.query))
}

// indexOfLocked returns the position of a record in the view, or -1.
// Callers must hold mu.
func (s *RecordService) indexOfLocked(recordID string) int {
	return slices.IndexFunc(s.records, func(r *domain.Record) bool {
		return r.ID == recordID
	})
}

// removeFromView drops a record from the view after a failed create.
func (s *RecordService) removeFromView(recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOfLocked(recordID); idx >= 0 {
		s.records = slices.Delete(s.records, idx, idx+1)
		s.refilterLocked()
	}
}

// restoreInView puts a snapshot back in place after a failed update.
func (s *RecordService) restoreInView(snapshot *domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOfLocked(snapshot.ID); idx >= 0 {
		s.records[idx] = snapshot
		s.refilterLocked()
	}
}
