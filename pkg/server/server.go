// Package server exposes screening over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/Sumatoshi-tech/gridscreen/pkg/config"
	"github.com/Sumatoshi-tech/gridscreen/pkg/observability"
	"github.com/Sumatoshi-tech/gridscreen/pkg/screening"
)

const (
	tracerName             = "gridscreen.server"
	defaultShutdownTimeout = 10 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for server spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithREDMetrics records request rate, errors and duration.
func WithREDMetrics(red *observability.REDMetrics) Option {
	return func(s *Server) {
		s.red = red
	}
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithScreenerOptions is applied to every Screener the server builds.
func WithScreenerOptions(opts ...screening.Option) Option {
	return func(s *Server) {
		s.screenerOpts = append(s.screenerOpts, opts...)
	}
}

// WithReadyChecks adds readiness checks to GET /readyz.
func WithReadyChecks(checks ...observability.ReadyCheck) Option {
	return func(s *Server) {
		s.readyChecks = append(s.readyChecks, checks...)
	}
}

// Server answers screening requests.
type Server struct {
	cfg          config.ServerConfig
	params       screening.Params
	maxBody      int64
	logger       *slog.Logger
	tracer       trace.Tracer
	red          *observability.REDMetrics
	metrics      http.Handler
	screenerOpts []screening.Option
	readyChecks  []observability.ReadyCheck
	cache        *resultCache
	handler      http.Handler
}

// New builds a server screening with params unless a request overrides them.
func New(cfg config.ServerConfig, params screening.Params, opts ...Option) (*Server, error) {
	err := params.Validate()
	if err != nil {
		return nil, err
	}

	maxBody, err := cfg.MaxBodyBytes()
	if err != nil {
		return nil, err
	}

	cacheBytes, err := cfg.ResultCacheBytes()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		params:  params,
		maxBody: maxBody,
		cache:   newResultCache(cacheBytes),
		logger:  slog.New(slog.DiscardHandler),
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.handler = observability.HTTPMiddleware(s.tracer, s.routes())

	return s, nil
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware, loggingMiddleware(s.logger, s.red))

	router.Handle("/healthz", observability.HealthHandler()).Methods(http.MethodGet)
	router.Handle("/readyz", observability.ReadyHandler(s.readyChecks...)).Methods(http.MethodGet)

	if s.metrics != nil {
		router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/v1").Subrouter()

	if s.cfg.RateLimit > 0 {
		api.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(s.cfg.RateLimit), max(s.cfg.RateBurst, 1))))
	}

	api.HandleFunc("/screen", s.handleScreen).Methods(http.MethodPost)
	api.HandleFunc("/params", s.handleParams).Methods(http.MethodGet)
	api.HandleFunc("/cache", s.handleCacheStats).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		writeError(rw, hr, http.StatusNotFound, errNotFound)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		writeError(rw, hr, http.StatusMethodNotAllowed, errMethodNotAllowed)
	})

	return router
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is canceled, then drains in-flight requests
// for at most the configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.InfoContext(ctx, "server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	s.logger.InfoContext(ctx, "server shutting down")

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
