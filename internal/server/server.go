// Package server exposes the simulator over HTTP: health, snapshots,
// commands, a websocket event stream and prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gravitysim/gravity/internal/channel"
	"github.com/gravitysim/gravity/internal/config"
	"github.com/gravitysim/gravity/internal/dispatcher"
	"github.com/gravitysim/gravity/internal/metrics"
	"github.com/gravitysim/gravity/internal/simulation"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 5 * time.Second

// Simulation is the read side of the simulator the server needs.
type Simulation interface {
	Snapshot() simulation.Snapshot
	Events() channel.Receiver[simulation.Event]
}

var _ Simulation = (*simulation.Simulator)(nil)

// Dependencies holds all dependencies for the server
type Dependencies struct {
	Dispatcher *dispatcher.Dispatcher
	Simulation Simulation
	// Metrics and Gatherer are optional; /metrics is only served with a Gatherer.
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server is the HTTP control surface.
type Server struct {
	cfg     config.ServerConfig
	deps    Dependencies
	limiter *IPRateLimiter
	hub     *hub
	log     *slog.Logger
}

// New creates a server. CommandRate <= 0 disables rate limiting.
func New(cfg config.ServerConfig, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	log := deps.Logger.With("component", "server")

	s := &Server{
		cfg:  cfg,
		deps: deps,
		hub:  newHub(log, deps.Metrics),
		log:  log,
	}
	if cfg.CommandRate > 0 {
		burst := cfg.CommandBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = NewIPRateLimiter(rate.Limit(cfg.CommandRate), burst)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /health", s.instrument("/health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /snapshot", s.instrument("/snapshot", http.HandlerFunc(s.handleSnapshot)))
	mux.Handle("POST /command", s.instrument("/command", http.HandlerFunc(s.handleCommand)))
	mux.HandleFunc("GET /stream", s.handleStream)
	if s.deps.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(s.deps.Gatherer))
	}
	return mux
}

// Broadcast forwards simulator events to stream clients until ctx is done
// or the event channel closes.
func (s *Server) Broadcast(ctx context.Context) {
	if s.deps.Simulation == nil {
		return
	}
	s.hub.run(ctx, s.deps.Simulation.Events())
}

// Run serves on cfg.Addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.Broadcast(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(path string, next http.Handler) http.Handler {
	if s.deps.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.deps.Metrics.RecordRequest(path, rec.code, time.Since(start))
	})
}
