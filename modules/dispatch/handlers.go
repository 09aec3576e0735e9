package dispatch

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/core"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// handleSend accepts a logical send request, fans it out, and reports
// how many recipients it reached.
func (s *Service) handleSend(w http.ResponseWriter, r *http.Request) {
	var req notify.SendRequest
	if err := decodeJSON(r, &req); err != nil {
		core.Render(w, r, core.JSONError(err))
		return
	}

	count, err := s.fanout.Send(r.Context(), req)
	if err != nil {
		s.log.LogAttrs(r.Context(), slog.LevelWarn, "send rejected",
			logger.Error(err),
			logger.Scope(string(req.Scope)),
		)
		core.Render(w, r, sendError(err))
		return
	}

	core.Render(w, r, core.JSONWithStatus(http.StatusAccepted, "queued",
		map[string]int{"recipient_count": count}, nil))
}

// sendError maps fan-out failures onto the API error vocabulary.
func sendError(err error) core.Response {
	switch {
	case errors.Is(err, notify.ErrEmptyAudience):
		return core.JSONErrorWithCode(http.StatusUnprocessableEntity, "empty_audience", err)
	case errors.Is(err, notify.ErrInvalidChannel), errors.Is(err, notify.ErrNoChannels):
		return core.JSONErrorWithCode(http.StatusUnprocessableEntity, "invalid_channel", err)
	case errors.Is(err, notify.ErrInvalidType):
		return core.JSONErrorWithCode(http.StatusUnprocessableEntity, "invalid_type", err)
	case errors.Is(err, notify.ErrEmptyMessage),
		errors.Is(err, notify.ErrInvalidScope),
		errors.Is(err, notify.ErrMissingTarget),
		errors.Is(err, notify.ErrInvalidPriority):
		return core.JSONErrorWithCode(http.StatusUnprocessableEntity, "validation_error", err)
	case errors.Is(err, notify.ErrAudienceResolution):
		return core.JSONErrorWithCode(http.StatusBadGateway, "audience_resolution_failed", err)
	default:
		return core.JSONError(err)
	}
}

// handleProcess triggers one processing pass over the claimable backlog.
func (s *Service) handleProcess(w http.ResponseWriter, r *http.Request) {
	req := processRequest{Limit: notify.DefaultBatchSize}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			core.Render(w, r, core.JSONError(err))
			return
		}
	}
	if req.Limit <= 0 {
		req.Limit = notify.DefaultBatchSize
	}

	result, err := s.processor.Run(r.Context(), req.Limit)
	if err != nil {
		s.log.LogAttrs(r.Context(), slog.LevelError, "processing pass failed", logger.Error(err))
		core.Render(w, r, core.JSONError(err))
		return
	}

	core.Render(w, r, core.JSON("processed", result, nil))
}

// handleStats reports queue totals grouped by status, channel and type.
func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.storage.Stats(r.Context())
	if err != nil {
		s.log.LogAttrs(r.Context(), slog.LevelError, "stats query failed", logger.Error(err))
		core.Render(w, r, core.JSONError(err))
		return
	}

	core.Render(w, r, core.JSON("stats", stats, nil))
}

// handleQueue lists queue records newest first with optional filters.
func (s *Service) handleQueue(w http.ResponseWriter, r *http.Request) {
	filter, err := queueFilter(r)
	if err != nil {
		core.Render(w, r, core.JSONError(err))
		return
	}

	records, err := s.storage.List(r.Context(), filter)
	if err != nil {
		s.log.LogAttrs(r.Context(), slog.LevelError, "queue query failed", logger.Error(err))
		core.Render(w, r, core.JSONError(err))
		return
	}

	core.Render(w, r, core.JSON("queue", records, map[string]any{
		"count":  len(records),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	}))
}

// handleRetry requeues a failed record for a fresh round of attempts.
func (s *Service) handleRetry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.Render(w, r, core.JSONError(core.ErrNotFound))
		return
	}

	switch err := s.storage.Requeue(r.Context(), id); {
	case err == nil:
	case errors.Is(err, notify.ErrNotFound):
		core.Render(w, r, core.JSONError(core.ErrNotFound))
		return
	case errors.Is(err, notify.ErrNotFailed):
		core.Render(w, r, core.JSONError(core.ErrConflict))
		return
	default:
		s.log.LogAttrs(r.Context(), slog.LevelError, "requeue failed",
			logger.Error(err), logger.NotificationID(id))
		core.Render(w, r, core.JSONError(err))
		return
	}

	s.log.LogAttrs(r.Context(), slog.LevelInfo, "record requeued", logger.NotificationID(id))
	core.Render(w, r, core.JSON("requeued", map[string]string{"id": id.String()}, nil))
}
