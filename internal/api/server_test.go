package api

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-app/recall-server/internal/search"
	"github.com/recall-app/recall-server/internal/service"
	"github.com/recall-app/recall-server/internal/store"
)

type testServer struct {
	*Server
	api humatest.TestAPI
}

// setupTestServer creates a test server with a real store and search index.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.New(filepath.Join(tmpDir, "db"), logger, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.NewSearchIndex(search.Options{
		DataPath: tmpDir,
		Logger:   logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	st.SetSearchIndexer(index)

	searchService := service.NewSearchService(index, st, logger)
	recordService := service.NewRecordService(st, searchService, nil, logger, service.RecordServiceOptions{
		DebounceDelay: 10 * time.Millisecond,
	})
	t.Cleanup(recordService.Close)
	require.NoError(t, recordService.Load(context.Background()))

	s := NewServer(st, &Services{
		Record: recordService,
		Search: searchService,
	}, nil, logger, ServerOptions{})

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
	}
}

func decodeBody[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	body := decodeBody[HealthResponse](t, resp)
	assert.Equal(t, "healthy", body.Components["database"].Status)
}

func TestCreateAndGetRecord(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/records", map[string]any{
		"content": "go backend",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	created := decodeBody[RecordResponse](t, resp)
	assert.Equal(t, []string{"go", "backend"}, created.Tags)
	assert.Equal(t, "go backend", created.Content)

	resp = ts.api.Get("/api/v1/records/" + created.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	got := decodeBody[RecordResponse](t, resp)
	assert.Equal(t, created.ID, got.ID)
}

func TestCreateRecord_Duplicate(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/records", map[string]any{"content": "go backend"})
	require.Equal(t, http.StatusOK, resp.Code)

	// Same tag set in different order and casing.
	resp = ts.api.Post("/api/v1/records", map[string]any{"content": "Backend GO"})
	assert.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
}

func TestCreateRecord_ContentTooLong(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/records", map[string]any{
		"content": strings.Repeat("x", 1025),
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}

func TestGetRecord_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/records/rec-ghost")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUpdateRecord(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/records", map[string]any{"content": "go"})
	require.Equal(t, http.StatusOK, resp.Code)
	created := decodeBody[RecordResponse](t, resp)

	resp = ts.api.Put("/api/v1/records/"+created.ID, map[string]any{"content": "go bleve"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	updated := decodeBody[RecordResponse](t, resp)
	assert.Equal(t, []string{"go", "bleve"}, updated.Tags)
}

func TestDeleteRecord_Idempotent(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/records", map[string]any{"content": "go"})
	require.Equal(t, http.StatusOK, resp.Code)
	created := decodeBody[RecordResponse](t, resp)

	resp = ts.api.Delete("/api/v1/records/" + created.ID)
	assert.Equal(t, http.StatusOK, resp.Code)

	// Deleting again reaches the same end state, so it succeeds.
	resp = ts.api.Delete("/api/v1/records/" + created.ID)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestListRecords_Pagination(t *testing.T) {
	ts := setupTestServer(t)

	for _, content := range []string{"alpha", "beta", "gamma"} {
		resp := ts.api.Post("/api/v1/records", map[string]any{"content": content})
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Get("/api/v1/records?limit=2")
	require.Equal(t, http.StatusOK, resp.Code)

	page := decodeBody[ListRecordsResponse](t, resp)
	assert.Len(t, page.Records, 2)
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.NextCursor)

	resp = ts.api.Get("/api/v1/records?limit=2&cursor=" + page.NextCursor)
	require.Equal(t, http.StatusOK, resp.Code)

	page = decodeBody[ListRecordsResponse](t, resp)
	assert.Len(t, page.Records, 1)
	assert.False(t, page.HasMore)
}

func TestViewQueryFiltersLocally(t *testing.T) {
	ts := setupTestServer(t)

	for _, content := range []string{"go backend", "go frontend", "rust"} {
		resp := ts.api.Post("/api/v1/records", map[string]any{"content": content})
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Post("/api/v1/view/query", map[string]any{"query": "go back"})
	require.Equal(t, http.StatusOK, resp.Code)

	view := decodeBody[ViewResponse](t, resp)
	assert.Equal(t, "go back", view.Query)
	require.Len(t, view.Records, 1)
	assert.Equal(t, []string{"go", "backend"}, view.Records[0].Tags)
	assert.Equal(t, "LIST", view.Mode)

	// Blank input clears the filter.
	resp = ts.api.Post("/api/v1/view/query", map[string]any{"query": ""})
	require.Equal(t, http.StatusOK, resp.Code)

	view = decodeBody[ViewResponse](t, resp)
	assert.Len(t, view.Records, 3)
}

func TestTagFrequencies(t *testing.T) {
	ts := setupTestServer(t)

	for _, content := range []string{"go backend", "go frontend", "go"} {
		resp := ts.api.Post("/api/v1/records", map[string]any{"content": content})
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Get("/api/v1/tags")
	require.Equal(t, http.StatusOK, resp.Code)

	freqs := decodeBody[TagFrequenciesResponse](t, resp)
	require.NotEmpty(t, freqs.Tags)
	assert.Equal(t, "go", freqs.Tags[0].Tag)
	assert.Equal(t, 3, freqs.Tags[0].Count)
}

func TestReindexAndSearch(t *testing.T) {
	ts := setupTestServer(t)

	for _, content := range []string{"go backend", "rust"} {
		resp := ts.api.Post("/api/v1/records", map[string]any{"content": content})
		require.Equal(t, http.StatusOK, resp.Code)
	}

	// Rebuild synchronously so the async indexers cannot race the assertion.
	resp := ts.api.Post("/api/v1/admin/reindex", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	reindex := decodeBody[ReindexResponse](t, resp)
	assert.Equal(t, uint64(2), reindex.Documents)

	resp = ts.api.Get("/api/v1/search?q=go+back")
	require.Equal(t, http.StatusOK, resp.Code)

	result := decodeBody[SearchResponse](t, resp)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, []string{"go", "backend"}, result.Hits[0].Tags)
}

func TestReloadView(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/records", map[string]any{"content": "go"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/admin/reload", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code)

	view := decodeBody[ViewResponse](t, resp)
	assert.Len(t, view.Records, 1)
}

func TestExportSnapshot_NotConfigured(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/admin/export", map[string]any{})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
