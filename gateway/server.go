package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/c360/seisgate/errors"
	"github.com/c360/seisgate/health"
	"github.com/c360/seisgate/metric"
)

// Server is the HTTP front end. Construct with NewServer, wire routes with
// Setup, then run with Start. Stop drains in-flight requests.
type Server struct {
	config  Config
	handler *handler
	logger  *slog.Logger

	httpServer *http.Server
	mux        *http.ServeMux

	running  bool
	mu       sync.RWMutex
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewServer validates the configuration and assembles the server around the
// given federator. The monitor and registry may be nil; health then reports
// a static status and metrics are skipped.
func NewServer(config Config, federator Federator, monitor *health.Monitor, logger *slog.Logger, metricsRegistry *metric.MetricsRegistry) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Server", "NewServer", "config validation")
	}
	if federator == nil {
		return nil, errors.WrapFatal(fmt.Errorf("federator is required"),
			"Server", "NewServer", "collaborator check")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var core *metric.Metrics
	if metricsRegistry != nil {
		core = metricsRegistry.CoreMetrics()
	}

	return &Server{
		config: config,
		handler: &handler{
			federator: federator,
			monitor:   monitor,
			core:      core,
			cfg:       config,
			logger:    logger,
		},
		logger:   logger,
		mux:      http.NewServeMux(),
		stopChan: make(chan struct{}),
	}, nil
}

// Setup registers the routes and builds the underlying http.Server. Must be
// called once before Start.
func (s *Server) Setup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mux.HandleFunc(QueryPath, s.handler.handleQuery)
	s.mux.HandleFunc(VersionPath, s.handler.handleVersion)
	s.mux.HandleFunc(HealthPath, s.handler.handleHealth)

	var chain http.Handler = s.mux
	if s.config.EnableCORS {
		chain = s.corsMiddleware(chain)
	}
	chain = s.recoverMiddleware(chain)
	chain = s.accessLogMiddleware(chain)
	chain = requestIDMiddleware(chain)

	s.httpServer = &http.Server{
		Addr:              s.config.BindAddress,
		Handler:           chain,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       s.config.IdleTimeout,
		// No WriteTimeout: merged payloads can stream for a long time and
		// are bounded upstream by the engine's stream timeout.
	}

	s.logger.Info("Gateway configured",
		"address", s.config.BindAddress,
		"cors_enabled", s.config.EnableCORS,
		"max_request_bytes", s.config.MaxRequestBytes)
	return nil
}

// Start runs the server until ctx is cancelled, Stop is called, or the
// listener fails. ready is closed once the listener goroutine is launched.
func (s *Server) Start(ctx context.Context, ready chan<- struct{}) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.Wrap(errors.ErrAlreadyStarted, "Server", "Start", "startup check")
	}
	if s.httpServer == nil {
		s.mu.Unlock()
		return errors.WrapFatal(fmt.Errorf("Setup must be called before Start"),
			"Server", "Start", "readiness check")
	}
	s.running = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Gateway listening", "address", s.config.BindAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	if ready != nil {
		close(ready)
	}

	select {
	case <-ctx.Done():
		return s.Stop(s.config.ShutdownTimeout)
	case <-s.stopChan:
		return nil
	case err := <-errChan:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return errors.WrapTransient(err, "Server", "Start", "listener")
	}
}

// Stop gracefully drains the server, waiting up to timeout for in-flight
// requests. Safe to call more than once.
func (s *Server) Stop(timeout time.Duration) error {
	var stopErr error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return
		}
		s.running = false
		s.mu.Unlock()

		close(s.stopChan)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			stopErr = errors.WrapTransient(err, "Server", "Stop", "graceful shutdown")
			return
		}
		s.logger.Info("Gateway stopped")
	})
	return stopErr
}

// IsRunning reports whether Start has been called and the server has not
// yet stopped.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Handler exposes the assembled middleware chain. Nil until Setup runs.
// Intended for tests driving the server through httptest.
func (s *Server) Handler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Handler
}
