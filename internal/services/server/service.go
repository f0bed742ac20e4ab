// Package server exposes the export trigger over HTTP for schedulers such as
// Cloud Scheduler or Pub/Sub push subscriptions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fgeck/cloudsql-export/internal/models"
	"github.com/fgeck/cloudsql-export/internal/services/credentials"
	"github.com/fgeck/cloudsql-export/internal/services/exporter"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// ExporterFactory builds an export trigger bound to a per-request logger.
type ExporterFactory func(logger zerolog.Logger) exporter.Service

// Server serves the HTTP trigger.
type Server struct {
	cfg        models.ExportConfig
	newRunner  ExporterFactory
	logger     zerolog.Logger
	httpServer *http.Server
}

type response struct {
	Status       string `json:"status"`
	InvocationID string `json:"invocation_id"`
	Error        string `json:"error,omitempty"`
}

// New creates a new HTTP trigger server.
func New(logger zerolog.Logger, cfg models.ExportConfig, newRunner ExporterFactory) *Server {
	s := &Server{
		cfg:       cfg,
		newRunner: newRunner,
		logger:    logger,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router returns the HTTP routes.
func (s *Server) Router() http.Handler {
	rtr := mux.NewRouter()
	rtr.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	rtr.HandleFunc("/export", s.handleExport).Methods(http.MethodPost)
	return rtr
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", s.httpServer.Addr).Msg("HTTP trigger listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	invocationID := uuid.NewString()
	logger := s.logger.With().Str("invocation_id", invocationID).Logger()

	err := s.newRunner(logger).Run(r.Context(), s.cfg)

	resp := response{Status: "ok", InvocationID: invocationID}
	status := http.StatusOK

	var authErr *credentials.AuthenticationError
	var exportErr *exporter.ExportRequestError
	switch {
	case err == nil:
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
	case errors.As(err, &exportErr):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	if err != nil {
		logger.Error().Err(err).Int("status", status).Msg("export invocation failed")
		resp.Status = "error"
		resp.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
