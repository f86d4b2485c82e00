// Package handler provides HTTP handlers for the AirSight API.
package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/api/response"
	"github.com/airsight/airsight/internal/aqi"
	"github.com/airsight/airsight/internal/reading"
)

// maxReadingsPageSize caps the number of readings returned per request.
const maxReadingsPageSize = 1000

// DashboardHandler handles the read-only dashboard endpoints.
type DashboardHandler struct {
	readings *reading.Service
	logger   zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(readings *reading.Service, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		readings: readings,
		logger:   logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// readingsResponse is the envelope for reading list endpoints.
type readingsResponse struct {
	Items []reading.Reading `json:"items"`
	Count int               `json:"count"`
}

// groupSummary is one aggregated group with its derived AQI category.
type groupSummary struct {
	reading.Group
	Category aqi.CategoryName `json:"category,omitempty"`
}

// groupsResponse is the envelope for aggregated endpoints.
type groupsResponse struct {
	GroupBy reading.GroupBy `json:"groupBy"`
	Items   []groupSummary  `json:"items"`
}

// withCategories classifies each group's rounded mean AQI.
func withCategories(groups []reading.Group) []groupSummary {
	out := make([]groupSummary, 0, len(groups))
	for _, g := range groups {
		gs := groupSummary{Group: g}
		if cat, err := aqi.Classify(int(math.Round(g.MeanAQI))); err == nil {
			gs.Category = cat.Name
		}
		out = append(out, gs)
	}
	return out
}

// ListReadings handles GET /v1/readings - windowed raw readings.
func (h *DashboardHandler) ListReadings(w http.ResponseWriter, r *http.Request) {
	f, fieldErrors := parseFilter(r)
	if fieldErrors != nil {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	limit := maxReadingsPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(w, r, "limit must be a positive integer", nil)
			return
		}
		if n < limit {
			limit = n
		}
	}

	snapshot, err := h.readings.GetSnapshot(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("snapshot unavailable")
		response.ServiceUnavailable(w, r, "readings store is unavailable")
		return
	}

	items := reading.FilterReadings(snapshot.Readings, f)
	if len(items) > limit {
		items = items[:limit]
	}

	response.JSON(w, r, http.StatusOK, readingsResponse{Items: items, Count: len(items)})
}

// Summary handles GET /v1/summary - per-group aggregates.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	f, fieldErrors := parseFilter(r)
	if fieldErrors != nil {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	groupBy, err := reading.ParseGroupBy(queryDefault(r, "group_by", string(reading.GroupByState)))
	if err != nil {
		response.BadRequest(w, r, "group_by must be one of: city, state, pollutant", nil)
		return
	}

	snapshot, err := h.readings.GetSnapshot(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("snapshot unavailable")
		response.ServiceUnavailable(w, r, "readings store is unavailable")
		return
	}

	groups, err := reading.Aggregate(snapshot.Readings, f, groupBy)
	if err != nil {
		response.BadRequest(w, r, "invalid aggregation parameters", nil)
		return
	}

	response.JSON(w, r, http.StatusOK, groupsResponse{GroupBy: groupBy, Items: withCategories(groups)})
}

// Rankings handles GET /v1/rankings - groups ordered by a metric.
func (h *DashboardHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	f, fieldErrors := parseFilter(r)
	if fieldErrors != nil {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	groupBy, err := reading.ParseGroupBy(queryDefault(r, "group_by", string(reading.GroupByCity)))
	if err != nil {
		response.BadRequest(w, r, "group_by must be one of: city, state, pollutant", nil)
		return
	}

	metric, err := reading.ParseMetric(queryDefault(r, "metric", string(reading.MetricMean)))
	if err != nil {
		response.BadRequest(w, r, "metric must be one of: mean, max, count", nil)
		return
	}

	topN := 10
	if raw := r.URL.Query().Get("top"); raw != "" {
		topN, err = strconv.Atoi(raw)
		if err != nil || topN <= 0 {
			response.BadRequest(w, r, "top must be a positive integer", nil)
			return
		}
	}

	var descending bool
	switch order := queryDefault(r, "order", "desc"); order {
	case "desc":
		descending = true
	case "asc":
		descending = false
	default:
		response.BadRequest(w, r, "order must be asc or desc", nil)
		return
	}

	snapshot, err := h.readings.GetSnapshot(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("snapshot unavailable")
		response.ServiceUnavailable(w, r, "readings store is unavailable")
		return
	}

	groups, err := reading.Aggregate(snapshot.Readings, f, groupBy)
	if err != nil {
		response.BadRequest(w, r, "invalid aggregation parameters", nil)
		return
	}

	ranked, err := reading.Rank(groups, metric, topN, descending)
	if err != nil {
		response.BadRequest(w, r, "invalid ranking parameters", nil)
		return
	}

	response.JSON(w, r, http.StatusOK, groupsResponse{GroupBy: groupBy, Items: withCategories(ranked)})
}

// timeSeriesResponse is the envelope for the hourly series endpoint.
type timeSeriesResponse struct {
	Buckets []reading.Bucket `json:"buckets"`
}

// TimeSeries handles GET /v1/timeseries - hourly mean AQI buckets.
func (h *DashboardHandler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	f, fieldErrors := parseFilter(r)
	if fieldErrors != nil {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	var pollutant reading.Pollutant
	if raw := r.URL.Query().Get("pollutant"); raw != "" {
		p, err := reading.ParsePollutant(raw)
		if err != nil {
			response.BadRequest(w, r, "unknown pollutant: "+raw, nil)
			return
		}
		pollutant = p
	}

	snapshot, err := h.readings.GetSnapshot(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("snapshot unavailable")
		response.ServiceUnavailable(w, r, "readings store is unavailable")
		return
	}

	buckets := reading.HourlySeries(snapshot.Readings, f, pollutant)
	response.JSON(w, r, http.StatusOK, timeSeriesResponse{Buckets: buckets})
}

// distributionResponse is the envelope for the category distribution endpoint.
type distributionResponse struct {
	Categories []reading.CategoryCount `json:"categories"`
	Total      int                     `json:"total"`
}

// Distribution handles GET /v1/distribution - readings per AQI category.
func (h *DashboardHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	f, fieldErrors := parseFilter(r)
	if fieldErrors != nil {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	snapshot, err := h.readings.GetSnapshot(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("snapshot unavailable")
		response.ServiceUnavailable(w, r, "readings store is unavailable")
		return
	}

	categories := reading.Distribution(snapshot.Readings, f)
	total := 0
	for _, c := range categories {
		total += c.Count
	}

	response.JSON(w, r, http.StatusOK, distributionResponse{Categories: categories, Total: total})
}

// Overview handles GET /v1/overview - headline metrics for the window.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	f, fieldErrors := parseFilter(r)
	if fieldErrors != nil {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	snapshot, err := h.readings.GetSnapshot(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("snapshot unavailable")
		response.ServiceUnavailable(w, r, "readings store is unavailable")
		return
	}

	response.JSON(w, r, http.StatusOK, reading.Overview(snapshot.Readings, f))
}

// Map handles GET /v1/map - latest reading per city for the map view.
func (h *DashboardHandler) Map(w http.ResponseWriter, r *http.Request) {
	f, fieldErrors := parseFilter(r)
	if fieldErrors != nil {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	snapshot, err := h.readings.GetSnapshot(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("snapshot unavailable")
		response.ServiceUnavailable(w, r, "readings store is unavailable")
		return
	}

	items := reading.LatestByCity(snapshot.Readings, f)
	response.JSON(w, r, http.StatusOK, readingsResponse{Items: items, Count: len(items)})
}
