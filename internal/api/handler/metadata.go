package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/api/response"
	"github.com/airsight/airsight/internal/aqi"
	"github.com/airsight/airsight/internal/reading"
)

// MetadataHandler serves the enumerations clients build filter controls from.
type MetadataHandler struct {
	readings *reading.Service
	logger   zerolog.Logger
}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler(readings *reading.Service, logger zerolog.Logger) *MetadataHandler {
	return &MetadataHandler{
		readings: readings,
		logger:   logger.With().Str("component", "metadata_handler").Logger(),
	}
}

// enumsResponse lists the distinct filter values and fixed vocabularies.
type enumsResponse struct {
	States     []string            `json:"states"`
	Cities     []string            `json:"cities"`
	Pollutants []reading.Pollutant `json:"pollutants"`
	Categories []aqi.Category      `json:"categories"`
	GroupBy    []reading.GroupBy   `json:"groupBy"`
	Metrics    []reading.Metric    `json:"metrics"`
}

// Enums handles GET /v1/metadata/enums.
func (h *MetadataHandler) Enums(w http.ResponseWriter, r *http.Request) {
	enums, err := h.readings.Enums(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("listing distinct values")
		response.ServiceUnavailable(w, r, "readings store is unavailable")
		return
	}

	response.JSON(w, r, http.StatusOK, enumsResponse{
		States:     enums.States,
		Cities:     enums.Cities,
		Pollutants: reading.Pollutants(),
		Categories: aqi.Categories(),
		GroupBy:    []reading.GroupBy{reading.GroupByCity, reading.GroupByState, reading.GroupByPollutant},
		Metrics:    []reading.Metric{reading.MetricMean, reading.MetricMax, reading.MetricCount},
	})
}
