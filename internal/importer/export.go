package importer

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/recall-app/recall-server/internal/domain"
	"github.com/recall-app/recall-server/internal/store"
)

// Snapshot is an exported copy of the full record set. The ID is a fresh
// UUID so successive exports never overwrite each other.
type Snapshot struct {
	ID         string           `json:"id"`
	ExportedAt time.Time        `json:"exported_at"`
	Records    []exportedRecord `json:"records"`
}

type exportedRecord struct {
	ID        string    `json:"id"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Exporter writes record snapshots to a directory.
type Exporter struct {
	store store.RecordStore
	dir   string
}

// NewExporter creates an exporter writing into dir.
func NewExporter(recordStore store.RecordStore, dir string) *Exporter {
	return &Exporter{store: recordStore, dir: dir}
}

// Export writes a snapshot of every stored record and returns its path.
// The snapshot's record array can be fed back through the importer (importer
// entries only need the tags field).
func (e *Exporter) Export(ctx context.Context) (string, error) {
	records, err := e.store.AllRecords(ctx)
	if err != nil {
		return "", fmt.Errorf("load records for export: %w", err)
	}

	snapshot := Snapshot{
		ID:         uuid.NewString(),
		ExportedAt: time.Now(),
		Records:    make([]exportedRecord, len(records)),
	}
	for i, r := range records {
		snapshot.Records[i] = exportedRecord(*r.Clone())
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	data, err := json.Marshal(&snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("snapshot-%s.json", snapshot.ID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// Restore reads a snapshot file back into record form. Used by the seeding
// tool; the live import path goes through Importer.ImportFile.
func Restore(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

// RecordsFromSnapshot converts snapshot entries back to domain records.
func RecordsFromSnapshot(s *Snapshot) []*domain.Record {
	records := make([]*domain.Record, len(s.Records))
	for i, er := range s.Records {
		r := domain.Record(er)
		records[i] = &r
	}
	return records
}
