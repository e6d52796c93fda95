// Package server implements the HTTP API of the course assistant: question
// answering with per-session history, course analytics, session reset and
// the operational endpoints (health, readiness, Prometheus metrics).
// The server is started by the `coursebot serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/coursebot-go/internal/logging"
	"github.com/54b3r/coursebot-go/internal/session"
	"github.com/54b3r/coursebot-go/internal/tools"
	"github.com/54b3r/coursebot-go/internal/version"
)

// maxBodyBytes caps request bodies on the JSON endpoints.
const maxBodyBytes = 64 << 10

// New constructs a Server from the provided query system and config.
func New(q querier, cfg *Config) (*Server, error) {
	if q == nil {
		return nil, fmt.Errorf("server: query system must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 90 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfg.QueryTimeout + 10*time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	if cfg.APIKey == "" {
		log.Warn("server: COURSEBOT_API_KEY not set, API authentication disabled")
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)

	s := &Server{
		querier: q,
		cfg:     cfg,
		log:     log,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.MetricsRegistry),
		stopRL:  stopRL,
	}

	rl.onReject = s.metrics.rateLimitedTotal.Inc

	protect := func(h http.HandlerFunc) http.Handler { return authMiddleware(cfg.APIKey, h) }

	mux := http.NewServeMux()
	mux.Handle("POST /api/query", rl.middleware(protect(s.handleQuery)))
	mux.Handle("GET /api/courses", protect(s.handleCourses))
	mux.Handle("DELETE /api/session/{id}", protect(s.handleClearSession))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, s.metricsMiddleware(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleQuery handles POST /api/query. A request without a session id gets a
// fresh session, returned in the response for follow-up questions.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	s.metrics.queryInFlight.Inc()
	defer s.metrics.queryInFlight.Dec()
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.QueryTimeout)
	defer cancel()

	sessionID := req.SessionID
	if sessionID == "" {
		id, err := s.querier.NewSession(ctx)
		if err != nil {
			s.observeQuery("error", start)
			log.Error("session create failed", slog.Any("error", err))
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}
		sessionID = id
	}
	ctx = logging.With(ctx, slog.String("session_id", sessionID))

	answer, sources, err := s.querier.Query(ctx, req.Query, sessionID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.observeQuery("timeout", start)
			log.Warn("query timed out", slog.Duration("timeout", s.cfg.QueryTimeout))
			http.Error(w, "query timed out", http.StatusGatewayTimeout)
			return
		}
		s.observeQuery("error", start)
		log.Error("query failed", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.observeQuery("ok", start)
	s.metrics.querySources.Observe(float64(len(sources)))

	if sources == nil {
		sources = []tools.Source{}
	}
	writeJSON(w, log, http.StatusOK, queryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	})
}

// handleCourses handles GET /api/courses.
func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	stats, err := s.querier.Analytics(r.Context())
	if err != nil {
		log.Error("course analytics failed", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if stats.CourseTitles == nil {
		stats.CourseTitles = []string{}
	}
	writeJSON(w, log, http.StatusOK, stats)
}

// handleClearSession handles DELETE /api/session/{id}.
func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.querier.ClearSession(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		logging.FromContext(r.Context()).Error("session clear failed", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, logging.FromContext(r.Context()), http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// observeQuery records the outcome and latency of one query.
func (s *Server) observeQuery(outcome string, start time.Time) {
	s.metrics.queryRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("response encode error", slog.Any("error", err))
	}
}
