// Package airnow provides a client for the EPA AirNow observations API.
package airnow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/internal/reading"
)

const (
	// DefaultBaseURL is the base URL for the AirNow API.
	DefaultBaseURL = "https://www.airnowapi.org/aq"

	// ProviderName identifies this provider.
	ProviderName = "airnow"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the AirNow client.
type ClientConfig struct {
	// APIKey authenticates requests. Required for the live API.
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, a default resilient
	// client is created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration
}

// Client is an AirNow API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new AirNow client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:    ProviderName,
			Timeout: timeout,
		})
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// observation mirrors the AirNow current-observation payload.
type observation struct {
	DateObserved  string  `json:"DateObserved"`
	HourObserved  int     `json:"HourObserved"`
	ReportingArea string  `json:"ReportingArea"`
	StateCode     string  `json:"StateCode"`
	Latitude      float64 `json:"Latitude"`
	Longitude     float64 `json:"Longitude"`
	ParameterName string  `json:"ParameterName"`
	AQI           int     `json:"AQI"`
}

// FetchStateObservations retrieves the current observations for a state and
// maps them to readings. Observations with unknown parameters or invalid AQI
// values are dropped; the second return value counts the drops.
func (c *Client) FetchStateObservations(ctx context.Context, state string) ([]reading.Reading, int, error) {
	u := fmt.Sprintf("%s/observation/state/current?stateCode=%s&format=application/json&API_KEY=%s",
		c.baseURL, url.QueryEscape(state), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch observations for %s: %w", state, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("unexpected status %d from observations endpoint", resp.StatusCode)
	}

	var observations []observation
	if err := json.NewDecoder(resp.Body).Decode(&observations); err != nil {
		return nil, 0, fmt.Errorf("decode observations: %w", err)
	}

	readings := make([]reading.Reading, 0, len(observations))
	dropped := 0
	for _, o := range observations {
		r, ok := mapObservation(o)
		if !ok {
			dropped++
			continue
		}
		readings = append(readings, r)
	}
	return readings, dropped, nil
}

func mapObservation(o observation) (reading.Reading, bool) {
	pollutant, err := reading.ParsePollutant(o.ParameterName)
	if err != nil {
		return reading.Reading{}, false
	}
	if o.AQI < 0 || o.ReportingArea == "" || o.StateCode == "" {
		return reading.Reading{}, false
	}

	observedAt, err := parseObservedAt(o.DateObserved, o.HourObserved)
	if err != nil {
		return reading.Reading{}, false
	}

	return reading.Reading{
		Timestamp: observedAt,
		StationID: o.StateCode + "-" + strings.ReplaceAll(o.ReportingArea, " ", "-"),
		City:      o.ReportingArea,
		State:     o.StateCode,
		Lat:       o.Latitude,
		Lon:       o.Longitude,
		Pollutant: pollutant,
		Value:     float64(o.AQI),
		AQI:       o.AQI,
	}, true
}

func parseObservedAt(date string, hour int) (time.Time, error) {
	if hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("hour %d out of range", hour)
	}
	d, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(hour) * time.Hour), nil
}
