// Package dispatch exposes the notification queue over HTTP: submitting
// send requests, triggering a processing pass, inspecting the queue and
// its stats, and requeuing failed records.
package dispatch

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// Service wires the notification core into an HTTP module.
type Service struct {
	fanout    *notify.Fanout
	processor *notify.Processor
	storage   notify.Storage
	log       *slog.Logger
}

// Option configures the dispatch service.
type Option func(*Service)

// WithLogger sets the logger used by the handlers.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates the dispatch HTTP module.
func NewService(fanout *notify.Fanout, processor *notify.Processor, storage notify.Storage, opts ...Option) (*Service, error) {
	if fanout == nil {
		return nil, errors.New("fanout cannot be nil")
	}
	if processor == nil {
		return nil, errors.New("processor cannot be nil")
	}
	if storage == nil {
		return nil, notify.ErrStorageNil
	}

	s := &Service{
		fanout:    fanout,
		processor: processor,
		storage:   storage,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("dispatch"))
	return s, nil
}

// Handle returns the module router, ready to mount.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/notifications", svc.Handle())
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/stats", s.handleStats)
	r.Get("/queue", s.handleQueue)
	r.Post("/queue/{id}/retry", s.handleRetry)
	r.Post("/send", s.handleSend)
	r.Post("/process", s.handleProcess)

	return r
}
