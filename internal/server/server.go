// Package server exposes the HTTP API: the query endpoint, the theming
// state endpoints, and the operational probes.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stockshock-backend/internal/common/config"
	"stockshock-backend/internal/common/logger"
	"stockshock-backend/internal/common/observability"
	"stockshock-backend/internal/orchestrator"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	orch   *orchestrator.Orchestrator
	chaos  orchestrator.ChaosStore
	db     Pinger
	obs    *observability.Observability
	config *config.ServerConfig
	logger logger.Logger
}

func New(orch *orchestrator.Orchestrator, chaos orchestrator.ChaosStore, db Pinger, obs *observability.Observability, cfg *config.ServerConfig, log logger.Logger) *Server {
	return &Server{
		orch:   orch,
		chaos:  chaos,
		db:     db,
		obs:    obs,
		config: cfg,
		logger: log.With(map[string]interface{}{
			"component": "server",
		}),
	}
}

// Handler assembles the route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("GET /api/chaos", s.handleGetChaos)
	mux.HandleFunc("PUT /api/chaos", s.handleSetChaos)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = loggingMiddleware(s.logger, handler)
	handler = recoveryMiddleware(s.logger, handler)
	handler = requestIDMiddleware(handler)
	handler = corsMiddleware(s.config.CORSOrigins, handler)
	return handler
}

// ListenAndServe runs the HTTP server until ctx is canceled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", map[string]interface{}{
			"address": s.config.Address,
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
