package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgwood/ReiTunes/internal/domain"
	"github.com/rgwood/ReiTunes/internal/search"
	"github.com/rgwood/ReiTunes/internal/service"
	"github.com/rgwood/ReiTunes/internal/sse"
	"github.com/rgwood/ReiTunes/internal/store/sqlite"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer builds a server over a fresh on-disk store with an
// in-memory search index. No remote is configured.
func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	logger := testLogger()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "library.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	library := service.NewLibraryService(st, domain.NewIncreasingClock(), "test-machine", logger)
	require.NoError(t, library.Load(context.Background()))

	idx, err := search.NewSearchIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	library.SetSearchIndexer(idx)

	manager := sse.NewManager(logger)
	handler := sse.NewHandler(manager, logger)

	srv := NewServer(st, library, nil, idx, manager, handler, apiKey, "", logger)
	t.Cleanup(srv.Close)
	return srv
}

// envelope mirrors the response wrapper for decoding in tests.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Success bool            `json:"success"`
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success, "expected success envelope, got: %s", rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, "")

	rec := doRequest(t, srv, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.Equal(t, "healthy", health.Components["search"].Status)
}

func TestAPIKey_RequiredWhenConfigured(t *testing.T) {
	srv := newTestServer(t, "sekrit")

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/items", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	req.Header.Set("X-API-Key", "sekrit")
	ok := httptest.NewRecorder()
	srv.ServeHTTP(ok, req)
	assert.Equal(t, http.StatusOK, ok.Code)
}

func TestAPIKey_WrongKeyRejected(t *testing.T) {
	srv := newTestServer(t, "sekrit")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKey_HealthAlwaysOpen(t *testing.T) {
	srv := newTestServer(t, "sekrit")

	rec := doRequest(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKey_NotRequiredWhenUnset(t *testing.T) {
	srv := newTestServer(t, "")

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/items", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerSync_NoRemoteConfigured(t *testing.T) {
	srv := newTestServer(t, "")

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sync", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	srv := newTestServer(t, "")

	created := doRequest(t, srv, http.MethodPost, "/api/v1/items", createItemRequest{
		Name:     "Intro",
		FilePath: "m83/intro.mp3",
		Artist:   "M83",
	})
	require.Equal(t, http.StatusCreated, created.Code)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Items)
	assert.Equal(t, int64(1), stats.Events)
	assert.Equal(t, uint64(1), stats.SearchDocs)
	assert.Zero(t, stats.Bookmarks)
	assert.Zero(t, stats.SSEClients)
}
