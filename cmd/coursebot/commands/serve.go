package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/coursebot-go/internal/config"
	"github.com/54b3r/coursebot-go/internal/logging"
	"github.com/54b3r/coursebot-go/internal/server"
)

// NewServeCmd constructs the `coursebot serve` command, which starts the HTTP
// API and optionally serves the web UI.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var staticDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the coursebot HTTP server",
		Long: `Start the coursebot HTTP server.

The server exposes POST /api/query, GET /api/courses and
DELETE /api/session/{id}, plus /api/health, /api/ready and /metrics.
With --static it also serves the web UI from the given directory.

Examples:
  coursebot serve
  coursebot serve --port 9090 --static ./frontend
  QDRANT_HOST=localhost coursebot serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Flags win over env and YAML, which are only resolved after
			// the root pre-run has loaded the config file.
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("COURSEBOT_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = config.EnvInt("COURSEBOT_PORT", port)
			}

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			a, err := buildApp(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.Close()

			queryTimeout, err := parseQueryTimeout(os.Getenv("COURSEBOT_QUERY_TIMEOUT"))
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			srv, err := server.New(a.system, &server.Config{
				Host:         host,
				Port:         port,
				QueryTimeout: queryTimeout,
				Logger:       log,
				Pingers:      buildPingers(a),
				RateLimit:    config.EnvFloat("COURSEBOT_RATE_LIMIT", 0),
				APIKey:       os.Getenv("COURSEBOT_API_KEY"),
				StaticDir:    staticDir,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (env: COURSEBOT_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "TCP port to listen on (env: COURSEBOT_PORT)")
	cmd.Flags().StringVar(&staticDir, "static", "", "Directory of web UI assets to serve at /")

	return cmd
}

// buildPingers returns the readiness probes for the wired dependencies.
func buildPingers(a *app) []server.Pinger {
	pingers := []server.Pinger{
		server.NewLLMPinger(a.client, a.health, a.providerCfg.ModelName(), string(a.providerCfg.Backend)),
	}
	if a.qdrant != nil {
		pingers = append(pingers, server.NewQdrantPinger(a.qdrant))
	}
	return pingers
}

// parseQueryTimeout parses a Go duration. Empty selects the server default.
func parseQueryTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid COURSEBOT_QUERY_TIMEOUT %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("COURSEBOT_QUERY_TIMEOUT must be positive, got %s", d)
	}
	return d, nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
