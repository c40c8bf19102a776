// Package server assembles the relay's HTTP surface: the authorization
// endpoints, the downstream token endpoint, the MCP tool gateway, and the
// operational endpoints, all on a single listener.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"authrelay/internal/config"
	"authrelay/internal/downstream"
	"authrelay/internal/gateway"
	"authrelay/internal/provider"
	"authrelay/internal/relay"
	"authrelay/pkg/logging"
	"authrelay/pkg/oauth"
)

// Server owns the HTTP listener and the components behind it.
type Server struct {
	cfg        *config.Config
	registry   *downstream.Registry
	engine     *downstream.Engine
	httpServer *http.Server
}

// New wires all components from configuration. The returned server is ready
// to Start.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	clientRegistry, err := downstream.NewRegistry(cfg.Downstream.ClientsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client registry: %w", err)
	}
	if err := clientRegistry.Watch(); err != nil {
		logging.Warn("Server", "Client registry watch unavailable: %v", err)
	}

	engine := downstream.NewEngine(clientRegistry, cfg.Downstream.CodeTTL, cfg.Downstream.AccessTokenTTL)

	upstream, err := provider.New(cfg.Provider, cfg.CallbackURL())
	if err != nil {
		return nil, err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	flowMetrics := relay.NewMetrics(promRegistry)

	signingKey := []byte(cfg.Consent.SigningKey)
	if len(signingKey) == 0 {
		generated, err := oauth.GenerateToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate consent signing key: %w", err)
		}
		signingKey = []byte(generated)
		logging.Warn("Server", "No consent.signingKey configured, using an ephemeral key; consent cookies will not survive a restart")
	}

	relayHandler := relay.NewHandler(
		upstream,
		engine,
		clientRegistry,
		signingKey,
		cfg.Consent.CookieTTL,
		flowMetrics,
	)

	toolGateway := gateway.New(cfg.Gateway, engine)

	mux := http.NewServeMux()
	relayHandler.Register(mux)
	mux.HandleFunc("/token", engine.ServeToken)
	mux.Handle("/mcp", toolGateway.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", handleHealth)

	return &Server{
		cfg:      cfg,
		registry: clientRegistry,
		engine:   engine,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Info("Server", "Listening on %s (%s provider)", s.httpServer.Addr, s.cfg.Provider.Type)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logging.Info("Server", "Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := s.httpServer.Shutdown(shutdownCtx)
		s.engine.Stop()
		s.registry.Stop()
		return err
	})

	return g.Wait()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
