package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/job-insights/internal/ingest"
	"github.com/job-insights/internal/service"
	"github.com/job-insights/internal/types"
)

const testExport = `job_id,backend,backend_type,status,creation_time,end_time,execution_time,shots
j1,ibm_kyoto,Eagle r3,COMPLETED,2024-05-01T09:00:00Z,2024-05-01T09:01:05Z,5000,1000
j2,ibm_kyoto,Eagle r3,FAILED,2024-05-01T10:00:00Z,2024-05-01T10:02:02Z,2000,500
j3,ibm_osaka,Eagle r3,COMPLETED,2024-05-02T09:00:00Z,2024-05-02T09:00:18Z,8000,4000
j4,ibm_osaka,Heron r1,QUEUED,2024-05-02T11:00:00Z,,,100
`

func testConfig() *ServerConfig {
	cfg := DefaultServerConfig()
	cfg.RateLimitRPS = 1000
	cfg.RateLimitBurst = 1000
	return cfg
}

// createTestServer returns a server over a dashboard loaded from testExport
func createTestServer(t *testing.T) (*Server, *service.DashboardService) {
	t.Helper()

	source, err := ingest.NewReaderSource("test", strings.NewReader(testExport))
	require.NoError(t, err)

	dashboard := service.NewDashboardService(source, nil, types.DefaultWeights())
	_, err = dashboard.Reload(context.Background())
	require.NoError(t, err)

	return NewServer(testConfig(), dashboard), dashboard
}

func doRequest(s *Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ServiceError {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func TestHealth(t *testing.T) {
	server, _ := createTestServer(t)

	w := doRequest(server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["snapshotLoaded"])
	assert.Equal(t, float64(4), body["jobs"])
	assert.Equal(t, "test", body["source"])
}

func TestHealth_BeforeFirstLoad(t *testing.T) {
	server := NewServer(testConfig(), service.NewDashboardService(nil, nil, types.DefaultWeights()))

	w := doRequest(server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"snapshotLoaded":false`)
}

func TestAnalyticsEndpoints_SnapshotNotLoaded(t *testing.T) {
	server := NewServer(testConfig(), service.NewDashboardService(nil, nil, types.DefaultWeights()))

	for _, path := range []string{"/api/jobs", "/api/summary", "/api/durations", "/api/wait-times", "/api/recommendations", "/api/anomalies", "/api/report"} {
		t.Run(path, func(t *testing.T) {
			w := doRequest(server, http.MethodGet, path, nil)
			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("Expected status 503, got %d", w.Code)
			}
			assert.Equal(t, "SNAPSHOT_NOT_LOADED", decodeError(t, w).Code)
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	server, _ := createTestServer(t)

	w := doRequest(server, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrCodeNotFound, decodeError(t, w).Code)
}

func TestWrongMethod(t *testing.T) {
	server, _ := createTestServer(t)

	w := doRequest(server, http.MethodGet, "/api/jobs/reload", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, ErrCodeMethodNotAllowed, decodeError(t, w).Code)
}

func TestWrongMethodOnAPIRoutes(t *testing.T) {
	server, _ := createTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/jobs/upload"},
		{http.MethodPost, "/api/summary"},
		{http.MethodDelete, "/api/jobs"},
		{http.MethodPut, "/api/report"},
		{http.MethodPost, "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := doRequest(server, tt.method, tt.path, nil)
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, ErrCodeMethodNotAllowed, decodeError(t, w).Code)
		})
	}
}

func TestUnmatchedRequestsGoThroughMiddleware(t *testing.T) {
	server, _ := createTestServer(t)

	for _, tc := range []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodGet, "/api/nope", http.StatusNotFound},
		{http.MethodGet, "/api/jobs/reload", http.StatusMethodNotAllowed},
	} {
		w := doRequest(server, tc.method, tc.path, nil)
		assert.Equal(t, tc.status, w.Code, tc.path)
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader), tc.path)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"), tc.path)
	}
}

func TestUnmatchedRequestsAreRateLimited(t *testing.T) {
	source, err := ingest.NewReaderSource("test", strings.NewReader(testExport))
	require.NoError(t, err)
	cfg := DefaultServerConfig()
	cfg.RateLimitRPS = 0.5
	cfg.RateLimitBurst = 1
	server := NewServer(cfg, service.NewDashboardService(source, nil, types.DefaultWeights()))

	assert.Equal(t, http.StatusNotFound, doRequest(server, http.MethodGet, "/api/nope", nil).Code)
	w := doRequest(server, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := createTestServer(t)

	doRequest(server, http.MethodGet, "/health", nil)
	w := doRequest(server, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jobinsights_http_requests_total")
	assert.Contains(t, w.Body.String(), "jobinsights_snapshot_jobs")
}
