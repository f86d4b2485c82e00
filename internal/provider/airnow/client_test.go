package airnow_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/provider/airnow"
	"github.com/airsight/airsight/internal/reading"
)

const observationsPayload = `[
	{
		"DateObserved": "2026-08-01",
		"HourObserved": 10,
		"ReportingArea": "Los Angeles",
		"StateCode": "CA",
		"Latitude": 34.05,
		"Longitude": -118.24,
		"ParameterName": "PM2.5",
		"AQI": 62
	},
	{
		"DateObserved": "2026-08-01",
		"HourObserved": 10,
		"ReportingArea": "Los Angeles",
		"StateCode": "CA",
		"Latitude": 34.05,
		"Longitude": -118.24,
		"ParameterName": "O3",
		"AQI": 41
	},
	{
		"DateObserved": "2026-08-01",
		"HourObserved": 10,
		"ReportingArea": "Fresno",
		"StateCode": "CA",
		"Latitude": 36.75,
		"Longitude": -119.77,
		"ParameterName": "NO2",
		"AQI": 30
	},
	{
		"DateObserved": "2026-08-01",
		"HourObserved": 10,
		"ReportingArea": "Fresno",
		"StateCode": "CA",
		"Latitude": 36.75,
		"Longitude": -119.77,
		"ParameterName": "PM10",
		"AQI": -999
	}
]`

func TestFetchStateObservations(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "CA", r.URL.Query().Get("stateCode"))
		assert.Equal(t, "test-key", r.URL.Query().Get("API_KEY"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(observationsPayload))
	}))
	defer server.Close()

	client := airnow.NewClient(airnow.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})

	readings, dropped, err := client.FetchStateObservations(context.Background(), "CA")
	require.NoError(t, err)
	assert.Equal(t, "/observation/state/current", gotPath)

	// NO2 is not a tracked pollutant and the -999 AQI is invalid.
	assert.Equal(t, 2, dropped)
	require.Len(t, readings, 2)

	first := readings[0]
	assert.Equal(t, "Los Angeles", first.City)
	assert.Equal(t, "CA", first.State)
	assert.Equal(t, "CA-Los-Angeles", first.StationID)
	assert.Equal(t, reading.PollutantPM25, first.Pollutant)
	assert.Equal(t, 62, first.AQI)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), first.Timestamp)

	assert.Equal(t, reading.PollutantO3, readings[1].Pollutant)
}

func TestFetchStateObservationsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := airnow.NewClient(airnow.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})

	_, _, err := client.FetchStateObservations(context.Background(), "CA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429")
}

func TestFetchStateObservationsBadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer server.Close()

	client := airnow.NewClient(airnow.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})

	_, _, err := client.FetchStateObservations(context.Background(), "CA")
	require.Error(t, err)
}
