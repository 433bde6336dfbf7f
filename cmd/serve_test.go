package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redcorridor/intel-cli/internal/archive"
	"github.com/redcorridor/intel-cli/internal/cluster"
	"github.com/redcorridor/intel-cli/internal/config"
	"github.com/redcorridor/intel-cli/internal/ingest"
	"github.com/redcorridor/intel-cli/internal/query"
	"github.com/redcorridor/intel-cli/internal/resolve"
	"github.com/redcorridor/intel-cli/internal/store"
)

func newTestEngine(t *testing.T) *engine {
	t.Helper()

	cfg = &config.Config{}
	cfg.Matching.PersonThreshold = 0.85
	cfg.Matching.IncidentThreshold = 0.80
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Server.QueueDepth = 4

	a, err := archive.NewSQLite(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() }) //nolint:errcheck
	require.NoError(t, a.Migrate(context.Background()))

	s := store.New()
	p := ingest.New(s,
		resolve.New(cfg.Matching.PersonThreshold),
		cluster.New(cfg.Matching.IncidentThreshold),
		a,
	)
	return &engine{Store: s, Archive: a, Pipeline: p, Query: query.New(s)}
}

func TestRouterHealth(t *testing.T) {
	env := newTestEngine(t)
	router := newRouter(env, ingest.NewWorker(env.Pipeline, cfg.Server.QueueDepth))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRouterIncidentsUnknownType(t *testing.T) {
	env := newTestEngine(t)
	router := newRouter(env, ingest.NewWorker(env.Pipeline, cfg.Server.QueueDepth))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/incidents?type=bogus", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterIncidentsEmptyList(t *testing.T) {
	env := newTestEngine(t)
	router := newRouter(env, ingest.NewWorker(env.Pipeline, cfg.Server.QueueDepth))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/incidents", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestRouterPostReportAccepted(t *testing.T) {
	env := newTestEngine(t)
	router := newRouter(env, ingest.NewWorker(env.Pipeline, cfg.Server.QueueDepth))

	body := `{"report_id": "r1", "filename": "r1.pdf", "data": {"Name": "Ramesh Yadav"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(body)))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"report_id":"r1"`)
}

func TestRouterPostReportMalformed(t *testing.T) {
	env := newTestEngine(t)
	router := newRouter(env, ingest.NewWorker(env.Pipeline, cfg.Server.QueueDepth))

	body := `{"report_id": "r1", "data": {"Name": "Unknown"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterPostReportMissingID(t *testing.T) {
	env := newTestEngine(t)
	router := newRouter(env, ingest.NewWorker(env.Pipeline, cfg.Server.QueueDepth))

	body := `{"data": {"Name": "Ramesh Yadav"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterPostReportQueueFull(t *testing.T) {
	env := newTestEngine(t)
	// Depth 1 and no running worker: the second report has nowhere to go.
	router := newRouter(env, ingest.NewWorker(env.Pipeline, 1))

	post := func(id string) *httptest.ResponseRecorder {
		body := `{"report_id": "` + id + `", "data": {"Name": "Ramesh Yadav"}}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(body)))
		return rec
	}

	assert.Equal(t, http.StatusAccepted, post("r1").Code)
	assert.Equal(t, http.StatusServiceUnavailable, post("r2").Code)
}
