// Package server exposes health, metrics and a manual sync trigger over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
	"vacation-sync/internal/models"
	"vacation-sync/internal/repository"
	"vacation-sync/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	shutdownTimeout = 10 * time.Second
	// syncTimeout bounds a manual run once it no longer follows the request.
	syncTimeout = 30 * time.Minute
)

var httpRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vacation_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	},
	[]string{"method", "route", "status"},
)

type Syncer interface {
	Run(ctx context.Context, opts service.RunOptions) service.Result
}

type Server struct {
	httpServer *http.Server
	syncer     Syncer
	auditRepo  repository.SyncAuditRepository
	logger     *logrus.Logger
}

func New(addr string, syncer Syncer, auditRepo repository.SyncAuditRepository) *Server {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	s := &Server{
		syncer:    syncer,
		auditRepo: auditRepo,
		logger:    logger,
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/sync", s.sync)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.WithField("addr", s.httpServer.Addr).Info("HTTP server started")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

type healthResponse struct {
	Status   string          `json:"status"`
	LastSync *lastSyncStatus `json:"last_sync,omitempty"`
}

type lastSyncStatus struct {
	Timestamp time.Time          `json:"timestamp"`
	Status    models.SyncOutcome `json:"status"`
	Message   string             `json:"message"`
	Records   int                `json:"records_synced"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	last, err := s.auditRepo.Last()
	if err != nil {
		s.logger.WithError(err).Error("Health check failed to read sync audit")
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	resp := healthResponse{Status: "ok"}
	if last != nil {
		resp.LastSync = &lastSyncStatus{
			Timestamp: last.Timestamp,
			Status:    last.Status,
			Message:   last.Message,
			Records:   last.RecordsSynced,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type syncResponse struct {
	RunID      string             `json:"run_id"`
	Outcome    models.SyncOutcome `json:"outcome"`
	Message    string             `json:"message"`
	Records    int                `json:"records"`
	Tabs       int                `json:"tabs"`
	DurationMS int64              `json:"duration_ms"`
}

func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	// a client that hangs up must not abort a download halfway
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), syncTimeout)
	defer cancel()

	res := s.syncer.Run(ctx, service.RunOptions{Force: force, Trigger: models.TriggerHTTP})

	status := http.StatusOK
	switch {
	case errors.Is(res.Err, service.ErrLockBusy):
		status = http.StatusConflict
	case res.Outcome == models.SyncError:
		status = http.StatusBadGateway
	}

	writeJSON(w, status, syncResponse{
		RunID:      res.RunID,
		Outcome:    res.Outcome,
		Message:    res.Message,
		Records:    res.Records,
		Tabs:       res.Tabs,
		DurationMS: res.Duration.Milliseconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
	})
}
