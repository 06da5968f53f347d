package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dashsync/domain/grid"
	"dashsync/internal/config"
	"dashsync/internal/errors"
	"dashsync/internal/synclog"
	"dashsync/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLogKey = "sync-log.json"

func newTestServer(t *testing.T, archive *testkit.MemoryArchive) (*Server, *testkit.MemoryStore) {
	t.Helper()
	store := testkit.NewMemoryStore()
	opts := Options{
		Routes:    Routes(config.DefaultDatasets("traffic", "revenue")),
		LogKey:    testLogKey,
		TestToken: "e2e-secret",
		GinMode:   gin.TestMode,
	}
	if archive == nil {
		return NewServer(opts, store, nil, nil), store
	}
	return NewServer(opts, store, archive, nil), store
}

func get(t *testing.T, h http.Handler, path string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authed {
		req.AddCookie(&http.Cookie{Name: "auth_session", Value: "session-1"})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seedLog(t *testing.T, store *testkit.MemoryStore) synclog.RunLog {
	t.Helper()
	log := synclog.Build(nil, synclog.RunInput{
		RunID:               "run-1",
		Started:             time.Date(2024, time.March, 14, 9, 30, 0, 0, time.UTC),
		Duration:            2 * time.Second,
		Status:              synclog.StatusPartial,
		PriorityDomainCount: 12,
		Files:               map[string]grid.Grid{"DR History.csv": {{"Website", "Mar 2024"}, {"a.com", "40"}}},
		FileSizes:           map[string]int64{"DR History.csv": 2048},
		Errors:              []string{"RD: tab | missing"},
	})
	data, err := log.Encode()
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), testLogKey, data, "application/json"))
	return log
}

func TestRoutes(t *testing.T) {
	routes := Routes(config.DefaultDatasets("traffic", "revenue"))

	assert.Len(t, routes, 10)
	assert.Equal(t, "revenue-history.csv", routes["revenue"].Key)
	assert.Equal(t, "traffic-data-priority.csv", routes["traffic-priority"].Key)
	assert.Equal(t, "internal-average-traffic.csv", routes["traffic-average"].Key)
	assert.Equal(t, 3600, routes["agent-niche"].MaxAge)
	assert.NotContains(t, routes, "revenue-priority")
}

func TestDataRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := get(t, srv.Handler(), "/api/data/dr", false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
}

func TestTestTokenBypass(t *testing.T) {
	srv, store := newTestServer(t, nil)
	store.Seed("DR History.csv", grid.Grid{{"Website"}, {"a.com"}})

	req := httptest.NewRequest(http.MethodGet, "/api/data/dr", nil)
	req.Header.Set("X-Test-Token", "e2e-secret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/data/dr", nil)
	req.Header.Set("X-Test-Token", "wrong")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEmptyTestTokenNeverAuthorizes(t *testing.T) {
	handler := RequireSession("")
	engine := gin.New()
	engine.GET("/x", handler, func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Test-Token", "")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDataServesCSV(t *testing.T) {
	srv, store := newTestServer(t, nil)
	store.Seed("traffic-data-priority.csv", grid.Grid{{"Website", "Jan 2024"}, {"a.com", "10"}})

	rec := get(t, srv.Handler(), "/api/data/traffic-priority", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "Website,Jan 2024\na.com,10\n", rec.Body.String())
}

func TestDataNotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := get(t, srv.Handler(), "/api/data/agent-niche", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Agent/Niche data not found"}`, rec.Body.String())

	rec = get(t, srv.Handler(), "/api/data/unknown", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDataStoreFailure(t *testing.T) {
	srv, store := newTestServer(t, nil)
	store.FailGet["RD History.csv"] = stderrors.New("s3 down")

	rec := get(t, srv.Handler(), "/api/data/rd", true)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch data"}`, rec.Body.String())
}

func TestSyncLogAndStatus(t *testing.T) {
	srv, store := newTestServer(t, nil)

	rec := get(t, srv.Handler(), "/api/sync-log", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	seedLog(t, store)

	rec = get(t, srv.Handler(), "/api/sync-log", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
	var full synclog.RunLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &full))
	assert.Equal(t, "run-1", full.RunID)

	rec = get(t, srv.Handler(), "/api/sync-status", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"last_sync":"2024-03-14T09:30:00Z","status":"partial","duration_seconds":2}`, rec.Body.String())
}

func TestSyncReport(t *testing.T) {
	srv, store := newTestServer(t, nil)
	seedLog(t, store)

	rec := get(t, srv.Handler(), "/api/sync-report", true)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Dashboard Sync Report</title>")
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, "DR History.csv")
	assert.Contains(t, body, "2.0 KB")
}

func TestReportMarkdown(t *testing.T) {
	log := synclog.RunLog{
		LastSync: time.Date(2024, time.March, 14, 9, 30, 0, 0, time.UTC),
		Status:   synclog.StatusSuccess,
		Metadata: map[string]synclog.FileMetadata{"b.csv": {Rows: 2}, "a.csv": {Rows: 1}},
		Changes:  []synclog.DataChange{{File: "a.csv", RowDelta: -1, Rows: 1}},
		Errors:   []string{"DR: a | b"},
	}

	md := RenderReportMarkdown(&log)

	assert.Contains(t, md, "- **Status:** success")
	assert.Less(t, strings.Index(md, "| a.csv |"), strings.Index(md, "| b.csv |"))
	assert.Contains(t, md, "| a.csv | 1 (-1) | 0 (+0) | - |")
	assert.Contains(t, md, "- DR: a | b")
	assert.NotContains(t, md, "## History")
}

func TestSyncRuns(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := get(t, srv.Handler(), "/api/sync-runs", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	archive := &testkit.MemoryArchive{}
	for _, id := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, archive.Record(context.Background(), synclog.RunLog{RunID: id, Status: synclog.StatusSuccess}))
	}
	srv, _ = newTestServer(t, archive)

	rec = get(t, srv.Handler(), "/api/sync-runs?limit=2", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Runs []struct {
			RunID string `json:"run_id"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 2)
	assert.Equal(t, "run-3", body.Runs[0].RunID)

	rec = get(t, srv.Handler(), "/api/sync-runs?limit=zero", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthzIsPublic(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := get(t, srv.Handler(), "/healthz", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "2.0 KB", humanBytes(2048))
	assert.Equal(t, "1.5 MB", humanBytes(1536*1024))
}

func TestRequireSessionRecordsUnauthorizedError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/sync-log", nil)
	c.Request.Header.Set("X-Test-Token", "wrong")

	RequireSession("e2e-secret")(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Len(t, c.Errors, 1)
	assert.True(t, errors.HasCode(c.Errors[0].Err, errors.CodeUnauthorized))
}
