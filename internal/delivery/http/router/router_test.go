package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/contact-scraper/internal/delivery/http/handler"
	"github.com/user/contact-scraper/internal/delivery/http/response"
	"github.com/user/contact-scraper/internal/entity"
	"github.com/user/contact-scraper/pkg/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type stubStore struct {
	pingErr  error
	statsErr error
	topN     int
}

func (s *stubStore) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubStore) GetStats(ctx context.Context, topN int) (entity.StoreStats, error) {
	s.topN = topN
	if s.statsErr != nil {
		return entity.StoreStats{}, s.statsErr
	}
	return entity.StoreStats{
		TotalContacts: 12,
		Completed:     3,
		Failed:        1,
		TopQueries:    []entity.QueryCount{{Query: "cafes", Contacts: 9}},
	}, nil
}

type stubRun struct{}

func (stubRun) RunID() string { return "run-1" }

func (stubRun) Snapshot() entity.RunSnapshot {
	return entity.RunSnapshot{TotalQueries: 10, Completed: 3, Failed: 1, Blocked: 1, TotalContacts: 12, StartTime: time.Now().Add(-time.Minute)}
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	store := &stubStore{}
	r := New(handler.NewHandler("cafes", nil, store))

	rec := serve(t, r, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","store":"ok"}`, rec.Body.String())

	store.pingErr = errors.New("connection refused")
	rec = serve(t, r, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatsWithRun(t *testing.T) {
	store := &stubStore{}
	r := New(handler.NewHandler("cafes", stubRun{}, store))

	rec := serve(t, r, http.MethodGet, "/api/stats?top=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, store.topN)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body response.StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "cafes", body.Dataset)
	require.NotNil(t, body.Run)
	assert.Equal(t, "run-1", body.Run.RunID)
	assert.Equal(t, 10, body.Run.TotalQueries)
	assert.Equal(t, 1, body.Run.Blocked)
	assert.Equal(t, 12, body.Store.TotalContacts)
	assert.Equal(t, []entity.QueryCount{{Query: "cafes", Contacts: 9}}, body.Store.TopQueries)
}

func TestStatsWithoutRun(t *testing.T) {
	store := &stubStore{}
	r := New(handler.NewHandler("cafes", nil, store))

	rec := serve(t, r, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, store.topN)
	assert.NotContains(t, rec.Body.String(), `"run"`)
}

func TestStatsRejectsBadTop(t *testing.T) {
	r := New(handler.NewHandler("cafes", nil, &stubStore{}))

	for _, q := range []string{"abc", "-1", "1000"} {
		rec := serve(t, r, http.MethodGet, "/api/stats?top="+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestStatsStoreFailure(t *testing.T) {
	r := New(handler.NewHandler("cafes", nil, &stubStore{statsErr: errors.New("db down")}))

	rec := serve(t, r, http.MethodGet, "/api/stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestMetricsEndpoint(t *testing.T) {
	r := New(handler.NewHandler("cafes", nil, &stubStore{}))
	serve(t, r, http.MethodGet, "/api/health")

	rec := serve(t, r, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `http_requests_total{method="GET",path="/api/health",status="200"}`))
}

func TestUnknownRoute(t *testing.T) {
	r := New(handler.NewHandler("cafes", nil, &stubStore{}))

	rec := serve(t, r, http.MethodGet, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(t, r, http.MethodPost, "/api/stats")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
