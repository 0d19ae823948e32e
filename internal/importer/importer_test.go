package importer

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-app/recall-server/internal/domain"
	"github.com/recall-app/recall-server/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBadgerStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "db"), nil, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestImporter(t *testing.T, s store.RecordStore) (*Importer, string) {
	t.Helper()
	dir := t.TempDir()
	imp, err := New(s, nil, testLogger(), Options{Dir: dir, SettleDelay: 20 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = imp.Stop() })
	return imp, dir
}

func writeImportFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportFile(t *testing.T) {
	s := newBadgerStore(t)
	imp, dir := newTestImporter(t, s)

	path := writeImportFile(t, dir, "drop.json",
		`[{"tags":["go","backend"]},{"tags":["rust"]},{"tags":[]}]`)

	result, err := imp.ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped, "empty tag set is skipped")

	count, err := s.CountRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// The file is consumed.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestImportFile_DuplicatesSkipped(t *testing.T) {
	s := newBadgerStore(t)
	imp, dir := newTestImporter(t, s)
	ctx := context.Background()

	require.NoError(t, s.CreateRecord(ctx, &domain.Record{
		ID: "rec-1", Tags: []string{"go", "backend"},
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))

	// Same tag set in different order and casing is a duplicate.
	path := writeImportFile(t, dir, "drop.json",
		`[{"tags":["Backend","GO"]},{"tags":["fresh"]}]`)

	result, err := imp.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
}

func TestImportFile_Malformed(t *testing.T) {
	s := newBadgerStore(t)
	imp, dir := newTestImporter(t, s)

	path := writeImportFile(t, dir, "bad.json", `{"not":"an array"}`)

	_, err := imp.ImportFile(context.Background(), path)
	assert.Error(t, err)
}

func TestWatcher_ImportsDroppedFile(t *testing.T) {
	s := newBadgerStore(t)
	imp, dir := newTestImporter(t, s)

	reloaded := make(chan struct{}, 1)
	imp.OnImported(func(context.Context) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = imp.Start(ctx) }()
	time.Sleep(50 * time.Millisecond) // let the watcher arm

	writeImportFile(t, dir, "drop.json", `[{"tags":["watched"]}]`)

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("dropped file was never imported")
	}

	count, err := s.CountRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestExportAndRestore(t *testing.T) {
	s := newBadgerStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRecord(ctx, &domain.Record{
		ID: "rec-1", Tags: []string{"go"},
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))
	require.NoError(t, s.CreateRecord(ctx, &domain.Record{
		ID: "rec-2", Tags: []string{"rust"},
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))

	exportDir := t.TempDir()
	exporter := NewExporter(s, exportDir)

	path, err := exporter.Export(ctx)
	require.NoError(t, err)
	assert.FileExists(t, path)

	snapshot, err := Restore(path)
	require.NoError(t, err)
	assert.NotEmpty(t, snapshot.ID)
	assert.Len(t, snapshot.Records, 2)

	records := RecordsFromSnapshot(snapshot)
	assert.Equal(t, "rec-1", records[0].ID)
	assert.Equal(t, []string{"go"}, records[0].Tags)

	// Two exports never collide.
	path2, err := exporter.Export(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, path, path2)
}
