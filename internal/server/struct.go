package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/coursebot-go/internal/rag"
	"github.com/54b3r/coursebot-go/internal/tools"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// exceed QueryTimeout.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// QueryTimeout bounds a single POST /api/query, covering both model
	// rounds and the tool calls between them. Defaults to 90s.
	QueryTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on
	// POST /api/query (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on the course API routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// StaticDir, when set, is served at / for a browser front end.
	StaticDir string
	// MetricsRegistry receives the server metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// querier is the slice of *rag.System the handlers use; tests inject a fake.
type querier interface {
	Query(ctx context.Context, text, sessionID string) (string, []tools.Source, error)
	NewSession(ctx context.Context) (string, error)
	ClearSession(ctx context.Context, sessionID string) error
	Analytics(ctx context.Context) (rag.Analytics, error)
}

// Server is the HTTP front end of the course assistant.
type Server struct {
	// querier answers questions and manages sessions.
	querier querier
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Query is the user's question.
	Query string `json:"query"`
	// SessionID continues an existing conversation. Empty starts a new one.
	SessionID string `json:"session_id,omitempty"`
}

// queryResponse is the JSON response for POST /api/query.
type queryResponse struct {
	Answer  string         `json:"answer"`
	Sources []tools.Source `json:"sources"`
	// SessionID is the session the exchange was recorded in.
	SessionID string `json:"session_id"`
}
