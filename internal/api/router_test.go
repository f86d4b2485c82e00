package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/api"
	"github.com/airsight/airsight/internal/auth"
	"github.com/airsight/airsight/internal/reading"
)

const testSigningKey = "test-secret-key-for-testing-only"

// seedRepository fills an in-memory store with a small fixed dataset.
func seedRepository(t *testing.T) *reading.InMemoryRepository {
	t.Helper()
	repo := reading.NewInMemoryRepository()

	now := time.Now().UTC()
	batch := []reading.Reading{
		{Timestamp: now.Add(-1 * time.Hour), StationID: "CA-Los-Angeles", City: "Los Angeles", State: "CA", Lat: 34.05, Lon: -118.24, Pollutant: reading.PollutantPM25, Value: 12.1, AQI: 51},
		{Timestamp: now.Add(-90 * time.Minute), StationID: "CA-Los-Angeles", City: "Los Angeles", State: "CA", Lat: 34.05, Lon: -118.24, Pollutant: reading.PollutantO3, Value: 0.041, AQI: 38},
		{Timestamp: now.Add(-1 * time.Hour), StationID: "TX-Houston", City: "Houston", State: "TX", Lat: 29.76, Lon: -95.37, Pollutant: reading.PollutantPM25, Value: 35.8, AQI: 102},
		{Timestamp: now.Add(-3 * time.Hour), StationID: "NY-New-York", City: "New York", State: "NY", Lat: 40.71, Lon: -74.01, Pollutant: reading.PollutantPM10, Value: 54.0, AQI: 50},
	}
	require.NoError(t, repo.Insert(context.Background(), batch))
	return repo
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.New(io.Discard)

	svc := reading.NewService(reading.ServiceConfig{
		Repository: seedRepository(t),
		Logger:     logger,
	})

	return api.NewRouter(api.RouterConfig{
		Version:        "test",
		BuildTime:      "2026-01-01T00:00:00Z",
		Logger:         logger,
		ReadingService: svc,
		TokenService:   auth.NewTokenService(auth.TokenConfig{SigningKey: testSigningKey}),
		Retention:      7 * 24 * time.Hour,
	})
}

// adminToken generates a valid admin bearer token.
func adminToken(t *testing.T) string {
	t.Helper()
	tokens := auth.NewTokenService(auth.TokenConfig{SigningKey: testSigningKey})
	token, _, err := tokens.GenerateServiceToken("test-ops", "admin")
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, router http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/ops/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestReadinessEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/ops/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListReadings(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/readings", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []reading.Reading `json:"items"`
		Count int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Count)
	assert.Len(t, body.Items, 4)
}

func TestListReadings_StateFilter(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/readings?states=TX", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []reading.Reading `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Houston", body.Items[0].City)
}

func TestListReadings_InvalidWindow(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/readings?window=72h", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestSummaryByState(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/summary?group_by=state", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		GroupBy string `json:"groupBy"`
		Items   []struct {
			Key      string  `json:"key"`
			Count    int     `json:"count"`
			MeanAQI  float64 `json:"meanAqi"`
			MaxAQI   int     `json:"maxAqi"`
			Category string  `json:"category"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "state", body.GroupBy)
	require.Len(t, body.Items, 3)

	byKey := make(map[string]float64)
	for _, g := range body.Items {
		byKey[g.Key] = g.MeanAQI
	}
	assert.InDelta(t, 44.5, byKey["CA"], 1e-9)
	assert.InDelta(t, 102.0, byKey["TX"], 1e-9)
}

func TestSummary_UnknownGroupBy(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/summary?group_by=zip", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRankings(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/rankings?group_by=city&metric=mean&top=2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []struct {
			Key string `json:"key"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 2)
	assert.Equal(t, "Houston", body.Items[0].Key)
}

func TestRankings_InvalidTop(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/rankings?top=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimeSeries(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/timeseries?pollutant=PM2.5", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Buckets []struct {
			Pollutant string `json:"pollutant"`
			Count     int    `json:"count"`
		} `json:"buckets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Buckets)
	for _, b := range body.Buckets {
		assert.Equal(t, "PM2.5", b.Pollutant)
	}
}

func TestDistribution(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/distribution", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Categories []struct {
			Category string `json:"category"`
			Count    int    `json:"count"`
		} `json:"categories"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Categories, 6)
	assert.Equal(t, 4, body.Total)
}

func TestOverview(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/overview", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int `json:"count"`
		MaxAQI int `json:"maxAqi"`
		Cities int `json:"cities"`
		States int `json:"states"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Count)
	assert.Equal(t, 102, body.MaxAQI)
	assert.Equal(t, 3, body.Cities)
	assert.Equal(t, 3, body.States)
}

func TestMap_LatestPerCity(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/map", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []reading.Reading `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// One marker per city, PM2.5 wins for Los Angeles (more recent).
	require.Len(t, body.Items, 3)
	for _, r := range body.Items {
		if r.City == "Los Angeles" {
			assert.Equal(t, reading.PollutantPM25, r.Pollutant)
		}
	}
}

func TestMetadataEnums(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/metadata/enums", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		States     []string `json:"states"`
		Cities     []string `json:"cities"`
		Pollutants []string `json:"pollutants"`
		Categories []struct {
			Name string `json:"name"`
			Hex  string `json:"hex"`
		} `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"CA", "NY", "TX"}, body.States)
	assert.Len(t, body.Categories, 6)
}

func TestAdminRefresh_RequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/v1/admin/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRefresh(t *testing.T) {
	router := newTestRouter(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+adminToken(t))
	rec := doRequest(t, router, http.MethodPost, "/v1/admin/refresh", header)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var body struct {
		SnapshotRefreshed bool `json:"snapshotRefreshed"`
		IngestQueued      bool `json:"ingestQueued"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.SnapshotRefreshed)
	assert.False(t, body.IngestQueued)
}

func TestAdminPurge(t *testing.T) {
	router := newTestRouter(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+adminToken(t))
	rec := doRequest(t, router, http.MethodPost, "/v1/admin/purge?before="+time.Now().UTC().Add(-2*time.Hour).Format(time.RFC3339), header)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Deleted)
}

func TestAdminPurge_BadCutoff(t *testing.T) {
	router := newTestRouter(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+adminToken(t))
	rec := doRequest(t, router, http.MethodPost, "/v1/admin/purge?before=yesterday", header)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/ops/health", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
