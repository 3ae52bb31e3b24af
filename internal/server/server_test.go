package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homevalai/homeval/internal/predict"
	"github.com/homevalai/homeval/internal/testhelper"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	testhelper.WriteBundle(t, dir)

	cfg := DefaultConfig()
	cfg.ArtifactsDir = dir

	s := New(cfg)
	require.NoError(t, s.LoadArtifacts())
	s.metrics = NewMetricsWithRegistry(prometheus.NewRegistry())
	return s
}

func postPredict(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/predict", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestPredictFullInput(t *testing.T) {
	s := newTestServer(t)

	body, err := json.Marshal(testhelper.FullInput())
	require.NoError(t, err)
	rec := postPredict(t, s, string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	var result predict.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, predict.SummaryComplete, result.Summary)
	require.Len(t, result.Outcomes, 3)
	for _, o := range result.Outcomes {
		assert.Equal(t, predict.StatusSuccess, o.Status)
	}
}

func TestPredictEmptyInput(t *testing.T) {
	s := newTestServer(t)

	// An empty payload is valid; every target reports what it is missing.
	rec := postPredict(t, s, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result predict.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, predict.SummaryPartial, result.Summary)
	for _, o := range result.Outcomes {
		assert.Equal(t, predict.StatusInsufficientData, o.Status)
		assert.NotEmpty(t, o.Missing)
	}
}

func TestPredictMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	rec := postPredict(t, s, `{"area": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictUnknownField(t *testing.T) {
	s := newTestServer(t)
	rec := postPredict(t, s, `{"square_feet": 1000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictOutOfRange(t *testing.T) {
	s := newTestServer(t)
	rec := postPredict(t, s, `{"area": 5000}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error    string   `json:"error"`
		Problems []string `json:"problems"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Problems, 1)
	assert.Contains(t, resp.Problems[0], "area")
}

func TestPredictUnknownCategoricalCode(t *testing.T) {
	s := newTestServer(t)
	rec := postPredict(t, s, `{"district": 99}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Problems []string `json:"problems"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Problems, 1)
	assert.Contains(t, resp.Problems[0], "district")
}

func TestPredictRejectsGet(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/v1/predict", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPredictCountsOutcomes(t *testing.T) {
	s := newTestServer(t)

	body, err := json.Marshal(testhelper.FullInput())
	require.NoError(t, err)
	postPredict(t, s, string(body))
	postPredict(t, s, `{}`)

	success := s.metrics.predictions.WithLabelValues(predict.TargetUnitPrice, string(predict.StatusSuccess))
	assert.Equal(t, 1.0, testutil.ToFloat64(success))
	skipped := s.metrics.predictions.WithLabelValues(predict.TargetUnitPrice, string(predict.StatusInsufficientData))
	assert.Equal(t, 1.0, testutil.ToFloat64(skipped))
}

func TestSchemaEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/schema", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Fields []SchemaField `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Fields, 11)

	byKey := make(map[string]SchemaField, len(resp.Fields))
	for _, f := range resp.Fields {
		byKey[f.Key] = f
	}

	district := byKey["district"]
	assert.Equal(t, "categorical", district.Type)
	assert.Equal(t, "无 (不适用)", district.NotApplicable)
	require.Len(t, district.Options, 7)
	assert.Equal(t, 0, district.Options[0].Code)
	assert.Equal(t, "亭湖区", district.Options[0].Label)
	require.NotNil(t, district.DefaultCode)
	assert.Equal(t, 3, *district.DefaultCode, "no fixed default, middle option wins")

	floorLevel := byKey["floor_level"]
	require.NotNil(t, floorLevel.DefaultCode)
	assert.Equal(t, 1, *floorLevel.DefaultCode)

	ageBand := byKey["age_band"]
	require.NotNil(t, ageBand.DefaultCode)
	assert.Equal(t, 2, *ageBand.DefaultCode)

	area := byKey["area"]
	assert.Equal(t, "numeric", area.Type)
	require.NotNil(t, area.Min)
	assert.Equal(t, 1.0, *area.Min)
	require.NotNil(t, area.Max)
	assert.Equal(t, 2000.0, *area.Max)
	require.NotNil(t, area.Default)
	assert.Equal(t, 95.0, *area.Default)
	assert.False(t, area.Integer)

	buildYear := byKey["build_year"]
	assert.True(t, buildYear.Integer)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status  string `json:"status"`
		Targets int    `json:"targets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Targets)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/api/v1/predict", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoadArtifactsBrokenBundle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ArtifactsDir = t.TempDir()

	s := New(cfg)
	err := s.LoadArtifacts()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading artifacts")
}
