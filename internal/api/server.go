// ABOUTME: API server that runs the HTTP JSON API and the gRPC health service
// ABOUTME: Wires routes, auth, rate limit and idempotency middleware, and manages server lifecycle

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/2389/adledger/internal/auth"
	"github.com/2389/adledger/internal/config"
	"github.com/2389/adledger/internal/dedupe"
	"github.com/2389/adledger/internal/events"
	"github.com/2389/adledger/internal/exchange"
)

// HealthService is the gRPC health service name reported alongside the
// overall server status.
const HealthService = "adledger.Exchange"

// Deps are the components the API exposes.
type Deps struct {
	Exchange *exchange.Exchange
	Gate     *auth.Gate
	Events   *events.Publisher
	Verifier auth.TokenVerifier
}

// Server serves the HTTP API and the gRPC health service.
type Server struct {
	cfg      config.ServerConfig
	exchange *exchange.Exchange
	gate     *auth.Gate
	events   *events.Publisher
	verifier auth.TokenVerifier

	// idempotency remembers Idempotency-Key headers of mutating requests
	idempotency *dedupe.Cache
	// writes is nil when write limiting is off
	writes *writeLimiter

	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds a Server. Nothing listens until Run is called.
func New(cfg config.ServerConfig, d Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:         cfg,
		exchange:    d.Exchange,
		gate:        d.Gate,
		events:      d.Events,
		verifier:    d.Verifier,
		idempotency: dedupe.New(10*time.Minute, 100_000),
		writes:      newWriteLimiter(cfg.WriteRate, cfg.WriteBurst),
		logger:      logger.With("component", "api"),
	}

	s.grpcServer = grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	reflection.Register(s.grpcServer)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)

	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var h http.Handler = mux
	h = s.idempotencyMiddleware(h)
	h = s.rateLimitMiddleware(h)
	if s.verifier != nil {
		h = auth.HTTPAuthMiddleware(s.verifier)(h)
	} else {
		s.logger.Warn("HTTP auth disabled - no token verifier configured")
	}
	return h
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/publishers", s.handleCreatePublisher)
	mux.HandleFunc("PATCH /api/publishers/{id}", s.handleUpdatePublisher)
	mux.HandleFunc("POST /api/advertisers", s.handleCreateAdvertiser)
	mux.HandleFunc("PATCH /api/advertisers/{id}", s.handleUpdateAdvertiser)
	mux.HandleFunc("GET /api/users/{id}", s.handleGetUser)

	mux.HandleFunc("POST /api/adspaces", s.handleCreateAdSpace)
	mux.HandleFunc("PATCH /api/adspaces/{id}", s.handleUpdateAdSpace)
	mux.HandleFunc("GET /api/adspaces/{id}", s.handleGetAdSpace)

	mux.HandleFunc("POST /api/offers", s.handleCreateOffer)
	mux.HandleFunc("PATCH /api/offers/{id}", s.handleUpdateOffer)
	mux.HandleFunc("GET /api/offers/{id}", s.handleGetOffer)

	mux.HandleFunc("POST /api/hits/display", s.handleCreateDisplayHit)
	mux.HandleFunc("POST /api/hits/action", s.handleCreateActionHit)
	mux.HandleFunc("PATCH /api/hits/display/{id}", s.handleUpdateDisplayHit)
	mux.HandleFunc("PATCH /api/hits/action/{id}", s.handleUpdateActionHit)
	mux.HandleFunc("GET /api/hits/{id}", s.handleGetHit)
	mux.HandleFunc("POST /api/hits/{id}/transact", s.handleTransactHit)

	mux.HandleFunc("PUT /api/{kind}/{id}/coefficients", s.handleSetCoefficients)
	mux.HandleFunc("GET /api/{kind}/{id}/coefficients/{index}", s.handleGetCoefficient)

	mux.HandleFunc("GET /api/owners", s.handleListOwners)
	mux.HandleFunc("POST /api/owners", s.handleGrantOwner)
	mux.HandleFunc("GET /api/owners/{caller}", s.handleIsOwner)
	mux.HandleFunc("DELETE /api/owners/{caller}", s.handleRevokeOwner)

	mux.HandleFunc("GET /api/events", s.handleEvents)
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) listen() (grpcLn, httpLn net.Listener, err error) {
	s.logger.Info("starting API server",
		"grpc_addr", s.cfg.GRPCAddr,
		"http_addr", s.cfg.HTTPAddr,
	)

	grpcLn, err = net.Listen("tcp", s.cfg.GRPCAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on gRPC address: %w", err)
	}

	httpLn, err = net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		_ = grpcLn.Close()
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}

	return grpcLn, httpLn, nil
}

func (s *Server) startServers(grpcLn, httpLn net.Listener) chan error {
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("gRPC health server listening", "addr", grpcLn.Addr().String())
		if err := s.grpcServer.Serve(grpcLn); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	go func() {
		s.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := s.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// Run starts both servers and blocks until ctx is cancelled or a server
// fails. Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	grpcLn, httpLn, err := s.listen()
	if err != nil {
		return err
	}

	errCh := s.startServers(grpcLn, httpLn)

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	// The original context is already canceled
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := s.Shutdown(shutdownCtx)

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// Shutdown marks the health service NOT_SERVING and stops both servers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	s.health.Shutdown()

	// Open event streams would keep HTTP shutdown waiting
	if s.events != nil {
		s.events.Close()
	}
	err := s.httpServer.Shutdown(ctx)

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}

	s.idempotency.Close()

	if err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}
