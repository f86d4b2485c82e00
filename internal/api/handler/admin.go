package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/api/middleware"
	"github.com/airsight/airsight/internal/api/response"
	"github.com/airsight/airsight/internal/ingest"
	"github.com/airsight/airsight/internal/reading"
)

// JobPublisher enqueues on-demand ingest jobs for the worker.
type JobPublisher interface {
	Publish(ctx context.Context, m ingest.Message) error
}

// AdminHandler handles authenticated administrative endpoints.
type AdminHandler struct {
	readings  *reading.Service
	publisher JobPublisher
	retention time.Duration
	logger    zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler. publisher may be nil when
// Pub/Sub is not configured; refresh then only rebuilds the local snapshot.
func NewAdminHandler(readings *reading.Service, publisher JobPublisher, retention time.Duration, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		readings:  readings,
		publisher: publisher,
		retention: retention,
		logger:    logger.With().Str("component", "admin_handler").Logger(),
	}
}

// refreshResponse reports what a refresh request kicked off.
type refreshResponse struct {
	SnapshotRefreshed bool `json:"snapshotRefreshed"`
	IngestQueued      bool `json:"ingestQueued"`
}

// Refresh handles POST /v1/admin/refresh - rebuild the snapshot and,
// when a publisher is configured, queue a fresh provider ingest.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	subject := middleware.GetSubject(r.Context())

	if err := h.readings.RefreshSnapshot(r.Context()); err != nil {
		h.logger.Error().Err(err).Str("subject", subject).Msg("snapshot refresh failed")
		response.ServiceUnavailable(w, r, "readings store is unavailable")
		return
	}

	resp := refreshResponse{SnapshotRefreshed: true}
	if h.publisher != nil {
		if err := h.publisher.Publish(r.Context(), ingest.Message{JobType: ingest.JobTypeIngest}); err != nil {
			h.logger.Error().Err(err).Msg("queueing ingest job")
		} else {
			resp.IngestQueued = true
		}
	}

	h.logger.Info().Str("subject", subject).Bool("ingest_queued", resp.IngestQueued).Msg("manual refresh")
	response.Accepted(w, r, resp)
}

// purgeResponse reports the outcome of a retention purge.
type purgeResponse struct {
	Deleted int64     `json:"deleted"`
	Before  time.Time `json:"before"`
}

// Purge handles POST /v1/admin/purge - delete readings older than the
// cutoff. The optional "before" query parameter (RFC3339) overrides the
// configured retention period.
func (h *AdminHandler) Purge(w http.ResponseWriter, r *http.Request) {
	subject := middleware.GetSubject(r.Context())

	cutoff := time.Now().UTC().Add(-h.retention)
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(w, r, "before must be an RFC3339 timestamp", nil)
			return
		}
		cutoff = t
	}

	deleted, err := h.readings.Purge(r.Context(), cutoff)
	if err != nil {
		h.logger.Error().Err(err).Str("subject", subject).Msg("purge failed")
		response.ServiceUnavailable(w, r, "readings store is unavailable")
		return
	}

	h.logger.Info().Str("subject", subject).Int64("deleted", deleted).Time("before", cutoff).Msg("manual purge")
	response.JSON(w, r, http.StatusOK, purgeResponse{Deleted: deleted, Before: cutoff})
}
